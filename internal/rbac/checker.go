package rbac

import "strings"

// Checker answers "may this role do this?" against a role -> permission
// table. Permissions are resource:action strings; a trailing "*" grants
// every action on the resource, a bare "*" grants everything.
type Checker struct {
	perms map[string][]string
}

// NewChecker builds a Checker over the given table, falling back to the
// package default policy when rp is nil.
func NewChecker(rp map[string][]string) *Checker {
	if rp == nil {
		rp = RolePermissions
	}
	return &Checker{perms: rp}
}

func (c *Checker) Has(role, perm string) bool {
	for _, granted := range c.perms[role] {
		if granted == "*" || granted == perm {
			return true
		}
		if prefix, ok := strings.CutSuffix(granted, "*"); ok && strings.HasPrefix(perm, prefix) {
			return true
		}
	}
	return false
}

// Any reports whether the role holds at least one of the permissions.
func (c *Checker) Any(role string, perms ...string) bool {
	for _, p := range perms {
		if c.Has(role, p) {
			return true
		}
	}
	return false
}

// All reports whether the role holds every one of the permissions.
func (c *Checker) All(role string, perms ...string) bool {
	for _, p := range perms {
		if !c.Has(role, p) {
			return false
		}
	}
	return true
}
