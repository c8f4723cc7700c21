package permission

import (
	"errors"
	"strings"
	"sync"
)

// Route is a navigable page and the role needed to open it.
type Route struct {
	Path     string
	Label    string
	Required Role
}

// Registry maps page paths to their required role. Routes keep registration
// order so navigation menus render in a stable order.
type Registry struct {
	mu     sync.RWMutex
	byPath map[string]int
	routes []Route
	frozen bool
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byPath: make(map[string]int)}
}

// DefaultRegistry returns the frozen navigation table of the inventory client.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, route := range []Route{
		{Path: "/dashboard", Label: "Dashboard", Required: Viewer},
		{Path: "/products", Label: "Products", Required: Viewer},
		{Path: "/orders", Label: "Orders", Required: Viewer},
		{Path: "/reports", Label: "Reports", Required: Manager},
	} {
		if err := r.Register(route); err != nil {
			panic(err)
		}
	}
	r.Freeze()
	return r
}

// Register adds route. Must be called before [Registry.Freeze].
func (r *Registry) Register(route Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return errors.New("registry frozen")
	}
	route.Path = normalizePath(route.Path)
	if route.Path == "" {
		return errors.New("route path cannot be empty")
	}
	if !route.Required.Valid() {
		return errors.New("route requires an undefined role")
	}
	if _, exists := r.byPath[route.Path]; exists {
		return errors.New("route already registered")
	}

	r.byPath[route.Path] = len(r.routes)
	r.routes = append(r.routes, route)
	return nil
}

// Lookup returns the route registered for path. A path below a registered route
// ("/products/42") resolves to that route.
func (r *Registry) Lookup(path string) (Route, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	path = normalizePath(path)
	for path != "" {
		if i, ok := r.byPath[path]; ok {
			return r.routes[i], true
		}
		cut := strings.LastIndexByte(path, '/')
		if cut <= 0 {
			break
		}
		path = path[:cut]
	}
	return Route{}, false
}

// Visible returns the routes holder may open, in registration order.
func (r *Registry) Visible(holder Role) []Route {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Route, 0, len(r.routes))
	for _, route := range r.routes {
		if Allows(holder, route.Required) {
			out = append(out, route)
		}
	}
	return out
}

// Freeze prevents further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Count returns the number of registered routes.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.routes)
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}
