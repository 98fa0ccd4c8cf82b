package gateway

import (
	"strings"
)

// PathRule matches a request path exactly or by prefix.
type PathRule struct {
	Exact  string
	Prefix string
}

// Exact returns a rule matching path only.
func Exact(path string) PathRule { return PathRule{Exact: path} }

// Prefix returns a rule matching every path under prefix.
func Prefix(prefix string) PathRule { return PathRule{Prefix: prefix} }

// Matches reports whether path satisfies the rule.
func (p PathRule) Matches(path string) bool {
	if p.Exact != "" {
		return path == p.Exact
	}
	if p.Prefix != "" {
		return strings.HasPrefix(path, p.Prefix)
	}
	return false
}

// Route is one row of the route table. An empty Method matches any method.
type Route struct {
	Name    string
	Method  string
	Path    PathRule
	Handler HandlerFunc
}

// Matches reports whether the route serves method and path.
func (rt *Route) Matches(method, path string) bool {
	if rt.Method != "" && rt.Method != method {
		return false
	}
	return rt.Path.Matches(path)
}

// Table is an ordered route table; the first matching row wins.
type Table []Route

// Match finds the first route for method and path.
func (t Table) Match(method, path string) (*Route, bool) {
	for i := range t {
		if t[i].Matches(method, path) {
			return &t[i], true
		}
	}
	return nil, false
}
