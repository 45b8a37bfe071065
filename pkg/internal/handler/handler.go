// Package handler provides reflection-based invocation of bound task targets.
package handler

import (
	"context"
	"encoding/json"
	"reflect"

	"github.com/cockroachdb/errors"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// Handler holds metadata about a bound function.
type Handler struct {
	Fn         reflect.Value
	ArgsType   reflect.Type
	HasContext bool
}

// NewHandler creates a Handler from a function.
// Accepted signatures, where T is any JSON-decodable type:
//
//	func() error
//	func(ctx context.Context) error
//	func(args T) error
//	func(ctx context.Context, args T) error
//
// Each may instead return (R, error); the result is discarded.
func NewHandler(fn any) (*Handler, error) {
	if fn == nil {
		return nil, errors.New("handler cannot be nil")
	}

	fnVal := reflect.ValueOf(fn)

	// Check for typed nil (e.g., var fn func() error = nil)
	if fnVal.Kind() == reflect.Func && fnVal.IsNil() {
		return nil, errors.New("handler function cannot be nil")
	}

	fnType := fnVal.Type()

	if fnType.Kind() != reflect.Func {
		return nil, errors.New("handler must be a function")
	}

	handler := &Handler{Fn: fnVal}

	numIn := fnType.NumIn()
	if numIn > 2 {
		return nil, errors.New("handler must have at most 2 arguments")
	}

	argIdx := 0
	if numIn > 0 && fnType.In(0).Implements(contextType) {
		handler.HasContext = true
		argIdx = 1
	}

	if argIdx < numIn {
		handler.ArgsType = fnType.In(argIdx)
	} else if numIn == 2 {
		return nil, errors.New("handler with 2 arguments must take context.Context first")
	}

	switch fnType.NumOut() {
	case 1:
		if !fnType.Out(0).Implements(errorType) {
			return nil, errors.New("handler must return error")
		}
	case 2:
		if !fnType.Out(1).Implements(errorType) {
			return nil, errors.New("handler must return (T, error)")
		}
	default:
		return nil, errors.New("handler must return error or (T, error)")
	}

	return handler, nil
}

// Execute runs the handler with the given context and positional arguments.
//
// When the handler's argument type is a slice or array the whole argument
// list is decoded into it; otherwise the first argument is decoded and an
// empty list yields the zero value.
func (h *Handler) Execute(ctx context.Context, args []any) error {
	if !h.Fn.IsValid() || h.Fn.IsNil() {
		return errors.New("handler function is nil or invalid")
	}

	var in []reflect.Value

	if h.HasContext {
		in = append(in, reflect.ValueOf(ctx))
	}

	if h.ArgsType != nil {
		argVal, err := h.decodeArgs(args)
		if err != nil {
			return err
		}
		in = append(in, argVal)
	}

	results := h.Fn.Call(in)

	last := results[len(results)-1]
	if !last.IsNil() {
		return last.Interface().(error)
	}
	return nil
}

func (h *Handler) decodeArgs(args []any) (reflect.Value, error) {
	argPtr := reflect.New(h.ArgsType)

	var payload any
	switch h.ArgsType.Kind() {
	case reflect.Slice, reflect.Array:
		payload = args
	default:
		if len(args) == 0 {
			return argPtr.Elem(), nil
		}
		payload = args[0]
	}

	if payload == nil {
		return argPtr.Elem(), nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return reflect.Value{}, errors.Wrap(err, "failed to marshal args")
	}
	if err := json.Unmarshal(raw, argPtr.Interface()); err != nil {
		return reflect.Value{}, errors.Wrap(err, "failed to unmarshal args")
	}
	return argPtr.Elem(), nil
}
