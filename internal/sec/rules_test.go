package sec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testRules() []Rule {
	return []Rule{
		{Path: "/", Public: true},
		{Path: "/token", Public: true},
		{Path: "/admin", Roles: []string{"ADMIN"}},
		{Path: "/user", Roles: []string{"ADMIN", "USER"}},
		{Path: "/reports/**", Roles: []string{"AUDITOR"}},
		{Path: "/**"},
	}
}

func TestGate_Check(t *testing.T) {
	t.Parallel()

	gate := NewGate(testRules())
	admin := &Identity{Subject: "alice", Roles: []string{"ADMIN"}}
	user := &Identity{Subject: "bob", Roles: []string{"USER"}}

	tests := []struct {
		name string
		path string
		id   *Identity
		want Decision
	}{
		{"public path anonymous", "/", nil, Allow},
		{"public path authenticated", "/token", user, Allow},
		{"admin path with admin role", "/admin", admin, Allow},
		{"admin path with user role", "/admin", user, DenyForbidden},
		{"admin path anonymous", "/admin", nil, DenyUnauthorized},
		{"multi-role path with either role", "/user", user, Allow},
		{"multi-role path with admin", "/user", admin, Allow},
		{"prefix rule matches nested path", "/reports/2024/q1", user, DenyForbidden},
		{"prefix rule matches its root", "/reports", nil, DenyUnauthorized},
		{"catch-all requires authentication", "/hello", nil, DenyUnauthorized},
		{"catch-all admits any identity", "/hello", user, Allow},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, test.want, gate.Check(test.path, test.id))
		})
	}
}

func TestGate_FirstMatchWins(t *testing.T) {
	t.Parallel()

	// The same path under both a public and a role rule: whichever is listed
	// first decides.
	user := &Identity{Subject: "bob", Roles: []string{"USER"}}

	publicFirst := NewGate([]Rule{
		{Path: "/status", Public: true},
		{Path: "/status", Roles: []string{"ADMIN"}},
	})
	assert.Equal(t, Allow, publicFirst.Check("/status", nil))

	roleFirst := NewGate([]Rule{
		{Path: "/status", Roles: []string{"ADMIN"}},
		{Path: "/status", Public: true},
	})
	assert.Equal(t, DenyUnauthorized, roleFirst.Check("/status", nil))
	assert.Equal(t, DenyForbidden, roleFirst.Check("/status", user))
}

func TestGate_NoMatchingRule(t *testing.T) {
	t.Parallel()

	gate := NewGate([]Rule{{Path: "/known", Public: true}})
	assert.Equal(t, DenyUnauthorized, gate.Check("/unknown", nil))
	assert.Equal(t, DenyForbidden, gate.Check("/unknown", &Identity{Subject: "bob"}))
}

func TestMatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/", "/", true},
		{"/", "/admin", false},
		{"/admin", "/admin", true},
		{"/admin", "/admin/tools", false},
		{"/reports/**", "/reports", true},
		{"/reports/**", "/reports/2024", true},
		{"/reports/**", "/reportsx", false},
		{"/**", "/anything/at/all", true},
	}

	for _, test := range tests {
		assert.Equalf(t, test.want, matches(test.pattern, test.path),
			"matches(%q, %q)", test.pattern, test.path)
	}
}
