package obs

import "context"

type routePatternKey struct{}

// WithRoutePattern pins the route label used by the HTTP metrics and request logs.
// Handlers mounted outside chi use it to avoid an "unknown" label.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	return context.WithValue(ctx, routePatternKey{}, pattern)
}

// RoutePatternFromContext extracts the pinned route pattern, if any.
func RoutePatternFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(routePatternKey{}).(string); ok {
		return v
	}
	return ""
}
