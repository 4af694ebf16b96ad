package rbac

import (
	"context"
	"strings"
)

// Checker answers role→permission questions against a policy table.
// Permissions follow the "resource:action" naming used throughout the API
// layer; a grant of "*" passes every check and a trailing "*" grants a whole
// resource ("attempt:*").
type Checker struct {
	grants map[string][]string
}

func NewChecker(policy map[string][]string) *Checker {
	if policy == nil {
		policy = RolePermissions
	}
	return &Checker{grants: policy}
}

func (c *Checker) Has(role, perm string) bool {
	for _, g := range c.grants[role] {
		if granted(g, perm) {
			return true
		}
	}
	return false
}

func (c *Checker) Any(role string, perms ...string) bool {
	for _, p := range perms {
		if c.Has(role, p) {
			return true
		}
	}
	return false
}

func (c *Checker) All(role string, perms ...string) bool {
	for _, p := range perms {
		if !c.Has(role, p) {
			return false
		}
	}
	return true
}

// granted matches one policy grant against a requested permission.
func granted(grant, perm string) bool {
	if grant == "*" || grant == perm {
		return true
	}
	if prefix, ok := strings.CutSuffix(grant, "*"); ok {
		return strings.HasPrefix(perm, prefix)
	}
	return false
}

// ---- role in context ----

type roleKey struct{}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(roleKey{}).(string)
	return role
}
