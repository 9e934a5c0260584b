// Package routes holds the static route registry: every navigable path, its
// display title, and the user type allowed to visit it. The registry is the
// single source of truth for the route guard and the site-map endpoint.
package routes

import (
	"fmt"
	"sort"

	"imovan/internal/identity"
)

// Descriptor describes one navigable path.
type Descriptor struct {
	Path         string            `json:"path"`
	Title        string            `json:"title"`
	RequiresAuth bool              `json:"requires_auth,omitempty"`
	UserType     identity.UserType `json:"user_type,omitempty"`
}

// RequiredType normalizes the descriptor's role requirement: routes that
// require auth but name no type accept any authenticated user.
func (d Descriptor) RequiredType() identity.UserType {
	if !d.RequiresAuth {
		return ""
	}
	if d.UserType == "" {
		return identity.UserTypeAny
	}
	return d.UserType
}

// Group is a named set of routes kept together for display purposes.
type Group struct {
	Name   string       `json:"name"`
	Title  string       `json:"title"`
	Routes []Descriptor `json:"routes"`
}

// Registry is the flattened, immutable route table. Built once at startup;
// construction fails fast when two descriptors share a path, instead of
// leaving the winner to iteration order.
type Registry struct {
	groups []Group
	byPath map[string]Descriptor
}

// NewRegistry builds a registry from groups, enforcing path uniqueness across
// all of them.
func NewRegistry(groups ...Group) (*Registry, error) {
	r := &Registry{
		groups: groups,
		byPath: make(map[string]Descriptor),
	}
	for _, g := range groups {
		for _, d := range g.Routes {
			if d.Path == "" {
				return nil, fmt.Errorf("route %q in group %q has an empty path", d.Title, g.Name)
			}
			if prev, exists := r.byPath[d.Path]; exists {
				return nil, fmt.Errorf("duplicate route path %q (%q and %q)", d.Path, prev.Title, d.Title)
			}
			r.byPath[d.Path] = d
		}
	}
	return r, nil
}

// MustNewRegistry panics on construction errors. Intended for the static
// default registry, where a duplicate path is a programming error.
func MustNewRegistry(groups ...Group) *Registry {
	r, err := NewRegistry(groups...)
	if err != nil {
		panic(err)
	}
	return r
}

// RouteByPath returns the descriptor registered for path.
func (r *Registry) RouteByPath(path string) (Descriptor, bool) {
	d, ok := r.byPath[path]
	return d, ok
}

// AllRoutes returns every descriptor, sorted by path.
func (r *Registry) AllRoutes() []Descriptor {
	out := make([]Descriptor, 0, len(r.byPath))
	for _, d := range r.byPath {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Groups returns the registry's display grouping.
func (r *Registry) Groups() []Group {
	return r.groups
}

// LandingPath maps a user type to its post-login landing route. Unknown types
// land on the public home page.
func LandingPath(t identity.UserType) string {
	switch t {
	case identity.UserTypeClient:
		return PathFleetDashboard
	case identity.UserTypeProvider:
		return PathProviderDashboard
	case identity.UserTypeIntegrator:
		return PathIntegratorDashboard
	default:
		return PathHome
	}
}
