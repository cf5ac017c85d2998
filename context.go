package yieldledger

import "context"

type tenantKey struct{}

// WithTenant returns a context carrying the caller's tenant identity. Every
// ledger operation is scoped to this tenant; none takes it as a parameter.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenantID)
}

// TenantFrom returns the tenant carried by ctx.
func TenantFrom(ctx context.Context) (string, bool) {
	tenantID, ok := ctx.Value(tenantKey{}).(string)
	return tenantID, ok && tenantID != ""
}

func tenantFromContext(ctx context.Context) (string, error) {
	tenantID, ok := TenantFrom(ctx)
	if !ok {
		return "", ErrMissingTenant
	}
	return tenantID, nil
}
