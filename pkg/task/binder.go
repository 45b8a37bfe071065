package task

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/jdziat/simple-durable-cron/pkg/internal/handler"
)

// Binder maps callback (component, method) pairs and route names to
// functions. It is safe for concurrent use.
type Binder struct {
	mu      sync.RWMutex
	methods map[string]map[string]*handler.Handler
	routes  map[string]*handler.Handler
}

// NewBinder creates an empty Binder.
func NewBinder() *Binder {
	return &Binder{
		methods: make(map[string]map[string]*handler.Handler),
		routes:  make(map[string]*handler.Handler),
	}
}

// BindMethod binds fn as method methodName of component className.
// See handler.NewHandler for the accepted function signatures.
func (b *Binder) BindMethod(className, methodName string, fn any) error {
	h, err := handler.NewHandler(fn)
	if err != nil {
		return errors.Wrapf(err, "bind %s::%s", className, methodName)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.methods[className]
	if !ok {
		m = make(map[string]*handler.Handler)
		b.methods[className] = m
	}
	m[methodName] = h
	return nil
}

// BindRoute binds fn as the handler of the named route.
func (b *Binder) BindRoute(routeName string, fn any) error {
	h, err := handler.NewHandler(fn)
	if err != nil {
		return errors.Wrapf(err, "bind route %s", routeName)
	}

	b.mu.Lock()
	b.routes[routeName] = h
	b.mu.Unlock()
	return nil
}

// HasMethod reports whether className::methodName is bound.
func (b *Binder) HasMethod(className, methodName string) bool {
	_, ok := b.method(className, methodName)
	return ok
}

// HasRoute reports whether routeName is bound.
func (b *Binder) HasRoute(routeName string) bool {
	_, ok := b.route(routeName)
	return ok
}

func (b *Binder) method(className, methodName string) (*handler.Handler, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	h, ok := b.methods[className][methodName]
	return h, ok
}

func (b *Binder) route(routeName string) (*handler.Handler, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	h, ok := b.routes[routeName]
	return h, ok
}

// callMethod invokes a bound method.
func (b *Binder) callMethod(ctx context.Context, className, methodName string, args []any) error {
	h, ok := b.method(className, methodName)
	if !ok {
		return errors.Wrapf(ErrUnboundTarget, "no method %s::%s", className, methodName)
	}
	return h.Execute(ctx, args)
}

// dispatch invokes a bound route.
func (b *Binder) dispatch(ctx context.Context, routeName string, args []any) error {
	h, ok := b.route(routeName)
	if !ok {
		return errors.Wrapf(ErrUnboundTarget, "no route %q", routeName)
	}
	return h.Execute(ctx, args)
}
