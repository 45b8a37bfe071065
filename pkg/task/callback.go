package task

import "context"

// Callback option keys.
const (
	OptClassName  = "className"
	OptMethodName = "methodName"
)

// Callback invokes a method bound on a named component.
type Callback struct {
	options map[string]string
	binder  *Binder
}

// NewCallback validates the className and methodName options.
func NewCallback(opts map[string]string, binder *Binder) (*Callback, error) {
	o, err := requireOptions(KindCallback, opts, OptClassName, OptMethodName)
	if err != nil {
		return nil, err
	}
	return &Callback{options: o, binder: binder}, nil
}

func (c *Callback) Kind() Kind { return KindCallback }
func (c *Callback) Options() map[string]string { return copyOptions(c.options) }

// ClassName returns the target component name.
func (c *Callback) ClassName() string { return c.options[OptClassName] }

// MethodName returns the target method name.
func (c *Callback) MethodName() string { return c.options[OptMethodName] }

func (c *Callback) Execute(ctx context.Context, args []any) error {
	return c.binder.callMethod(ctx, c.ClassName(), c.MethodName(), args)
}
