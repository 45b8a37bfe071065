package task

import "context"

// OptRouteName is the Route option key.
const OptRouteName = "routeName"

// Route dispatches to an internal named handler.
type Route struct {
	options map[string]string
	binder  *Binder
}

// NewRoute validates the routeName option.
func NewRoute(opts map[string]string, binder *Binder) (*Route, error) {
	o, err := requireOptions(KindRoute, opts, OptRouteName)
	if err != nil {
		return nil, err
	}
	return &Route{options: o, binder: binder}, nil
}

func (r *Route) Kind() Kind { return KindRoute }
func (r *Route) Options() map[string]string { return copyOptions(r.options) }

// RouteName returns the dispatch target.
func (r *Route) RouteName() string { return r.options[OptRouteName] }

func (r *Route) Execute(ctx context.Context, args []any) error {
	return r.binder.dispatch(ctx, r.RouteName(), args)
}
