package sec

import "strings"

// Rule grants or restricts access to a request path. Rules are static,
// configured at startup and read-only thereafter.
//
// A pattern matches its path exactly, except that a trailing "/**" makes it a
// prefix match and the bare "/**" matches every path.
type Rule struct {
	// Path is the pattern the request path is matched against.
	Path string `yaml:"path"`
	// Public admits the request without authentication.
	Public bool `yaml:"public"`
	// Roles lists the roles of which the identity must hold at least one.
	// Empty (and not Public) means any authenticated identity is admitted.
	Roles []string `yaml:"roles"`
}

// Decision is the outcome of a [Gate] check.
type Decision int

const (
	// DenyUnauthorized rejects a request with no authenticated identity.
	DenyUnauthorized Decision = iota
	// DenyForbidden rejects an authenticated identity lacking a required role.
	DenyForbidden
	// Allow admits the request.
	Allow
)

// Gate authorizes request paths against an ordered rule list. Rules are
// evaluated in configured order and the first match wins; the ordering is a
// correctness contract, not an implementation detail. A path matching no rule
// is denied. A gate is immutable and safe for concurrent use.
type Gate struct {
	rules []Rule
}

// NewGate creates a gate over the given rules. The slice is copied so later
// mutation by the caller cannot affect the gate.
func NewGate(rules []Rule) *Gate {
	return &Gate{rules: append([]Rule(nil), rules...)}
}

// Check returns the decision for a request path. id is nil for anonymous
// requests.
func (g *Gate) Check(path string, id *Identity) Decision {
	for _, rule := range g.rules {
		if !matches(rule.Path, path) {
			continue
		}
		switch {
		case rule.Public:
			return Allow
		case id == nil:
			return DenyUnauthorized
		case len(rule.Roles) == 0:
			return Allow
		case id.HasAnyRole(rule.Roles...):
			return Allow
		default:
			return DenyForbidden
		}
	}
	// Unmatched paths are denied by default.
	if id == nil {
		return DenyUnauthorized
	}
	return DenyForbidden
}

func matches(pattern, path string) bool {
	if pattern == "/**" {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	}
	return path == pattern
}
