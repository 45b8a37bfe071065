// Package task provides the executable units referenced by job definitions.
package task

import (
	"context"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// Kind names a task variant.
type Kind string

const (
	KindCallback Kind = "callback"
	KindExternal Kind = "external"
	KindRoute    Kind = "route"
)

// Kinds lists the supported task variants.
var Kinds = []Kind{KindCallback, KindExternal, KindRoute}

// Task errors
var (
	ErrInvalidTaskDescriptor = errors.New("cron: job task is not defined properly")
	ErrUnboundTarget         = errors.New("cron: task target is not bound")
)

// Descriptor declares a task in configuration: its kind and option set.
type Descriptor struct {
	Type    string            `mapstructure:"type" json:"type"`
	Options map[string]string `mapstructure:"options" json:"options"`
}

// Executor runs a task with the definition's arguments.
type Executor interface {
	Kind() Kind
	Options() map[string]string
	Execute(ctx context.Context, args []any) error
}

// New validates desc and builds its executor. Callback and route targets
// are resolved through binder at execution time, so they may be bound
// after the registry is built.
func New(desc Descriptor, binder *Binder) (Executor, error) {
	if binder == nil {
		binder = NewBinder()
	}

	switch Kind(strings.ToLower(strings.TrimSpace(desc.Type))) {
	case KindCallback:
		return NewCallback(desc.Options, binder)
	case KindExternal:
		return NewExternal(desc.Options)
	case KindRoute:
		return NewRoute(desc.Options, binder)
	case "":
		return nil, errors.Wrap(ErrInvalidTaskDescriptor, "missing task type")
	default:
		return nil, errors.Wrapf(ErrInvalidTaskDescriptor, "unknown task type %q", desc.Type)
	}
}

// requireOptions copies opts after checking that every key is present and
// not blank. Keys are matched case-insensitively and stored under their
// canonical spelling, since configuration loaders may fold key case.
func requireOptions(kind Kind, opts map[string]string, keys ...string) (map[string]string, error) {
	out := canonicalOptions(opts, keys...)

	var missing []string
	for _, k := range keys {
		if strings.TrimSpace(out[k]) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, errors.Wrapf(ErrInvalidTaskDescriptor, "%s task missing option(s): %s", kind, strings.Join(missing, ", "))
	}
	return out, nil
}

func canonicalOptions(opts map[string]string, keys ...string) map[string]string {
	out := copyOptions(opts)
	for _, want := range keys {
		if _, ok := out[want]; ok {
			continue
		}
		for k, v := range out {
			if strings.EqualFold(k, want) {
				delete(out, k)
				out[want] = v
				break
			}
		}
	}
	return out
}

func copyOptions(opts map[string]string) map[string]string {
	out := make(map[string]string, len(opts))
	for k, v := range opts {
		out[k] = v
	}
	return out
}
