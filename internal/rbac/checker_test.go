package rbac

import "testing"

func TestCheckerWildcard(t *testing.T) {
	c := NewChecker(map[string][]string{
		"teacher": {"lecture:*", "course:view"},
		"admin":   {"*"},
	})

	cases := []struct {
		role, perm string
		want       bool
	}{
		{"teacher", "lecture:create", true},
		{"teacher", "lecture:view", true},
		{"teacher", "course:view", true},
		{"teacher", "course:create", false},
		{"admin", "anything:at-all", true},
		{"nobody", "course:view", false},
	}
	for _, tc := range cases {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Errorf("Has(%q, %q) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}

func TestCheckerAnyAll(t *testing.T) {
	c := NewChecker(map[string][]string{"student": {"quiz:attempt", "course:view"}})

	if !c.Any("student", "quiz:create", "quiz:attempt") {
		t.Error("Any should pass when one permission matches")
	}
	if c.All("student", "quiz:attempt", "quiz:create") {
		t.Error("All should fail when one permission is missing")
	}
	if !c.All("student", "quiz:attempt", "course:view") {
		t.Error("All should pass when every permission matches")
	}
}

func TestDefaultPolicy(t *testing.T) {
	c := NewChecker(nil)
	if c.Has("student", "submission:grade") {
		t.Error("students must not grade submissions")
	}
	if !c.Has("student", "submission:edit-own") {
		t.Error("students edit their own submissions")
	}
	if !c.Has("teacher", "quiz:create") {
		t.Error("teachers author quizzes")
	}
	if !c.Has("admin", "analytics:site") {
		t.Error("admins read site analytics")
	}
}
