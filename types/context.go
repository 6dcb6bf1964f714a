package types

import (
	"context"
	"slices"
)

// RoleAdmin 允许修改凭证与默认模型的角色
const RoleAdmin = "admin"

// contextKey is used for storing values in context.Context.
type contextKey string

const (
	keyTenantID contextKey = "tenant_id"
	keyUserID   contextKey = "user_id"
	keyRoles    contextKey = "roles"
)

func stringValue(ctx context.Context, key contextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}

// WithTenantID stores the tenant claim of an authenticated caller.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, keyTenantID, tenantID)
}

// TenantID is used as the rate-limit bucket key under JWT auth.
func TenantID(ctx context.Context) (string, bool) {
	return stringValue(ctx, keyTenantID)
}

// WithUserID stores the subject claim.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, keyUserID, userID)
}

func UserID(ctx context.Context) (string, bool) {
	return stringValue(ctx, keyUserID)
}

// WithRoles stores the roles claim.
func WithRoles(ctx context.Context, roles []string) context.Context {
	return context.WithValue(ctx, keyRoles, roles)
}

func Roles(ctx context.Context) ([]string, bool) {
	v, ok := ctx.Value(keyRoles).([]string)
	return v, ok && len(v) > 0
}

// HasIdentity reports whether a token-authenticated caller is attached.
// API key auth leaves the context without identity.
func HasIdentity(ctx context.Context) bool {
	_, tenant := TenantID(ctx)
	_, user := UserID(ctx)
	return tenant || user
}

// HasRole reports whether the caller carries the given role.
func HasRole(ctx context.Context, role string) bool {
	roles, _ := Roles(ctx)
	return slices.Contains(roles, role)
}
