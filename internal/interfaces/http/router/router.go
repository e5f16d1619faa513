// Package router assembles the HTTP routes of the reception service.
package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RouteRegistrar mounts a set of routes on a gin group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router mounts registrars under /api/<version>
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

// RouterOption configures a Router
type RouterOption func(*Router)

// WithAPIVersion replaces the default "v1" prefix
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) { r.apiVersion = version }
}

func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register queues registrars for Setup
func (r *Router) Register(registrars ...RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrars...)
	return r
}

// Setup mounts every registered group on the engine
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, reg := range r.registrars {
		reg.RegisterRoutes(api)
	}
}

// Route is one endpoint, relative to where its group is mounted
type Route struct {
	Method string
	Path   string
}

type endpoint struct {
	Route
	handlers []gin.HandlerFunc
}

// DomainGroup declares the routes of one resource before they are mounted,
// so they can be listed and checked without an engine.
type DomainGroup struct {
	name       string
	prefix     string
	middleware []gin.HandlerFunc
	endpoints  []endpoint
	children   []*DomainGroup
}

func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

func (dg *DomainGroup) Name() string   { return dg.name }
func (dg *DomainGroup) Prefix() string { return dg.prefix }

// Use adds middleware to the group and its subgroups
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

// Handle declares a route
func (dg *DomainGroup) Handle(method, path string, handlers ...gin.HandlerFunc) *DomainGroup {
	dg.endpoints = append(dg.endpoints, endpoint{Route{method, path}, handlers})
	return dg
}

func (dg *DomainGroup) GET(path string, h ...gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodGet, path, h...)
}

func (dg *DomainGroup) POST(path string, h ...gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodPost, path, h...)
}

func (dg *DomainGroup) PUT(path string, h ...gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodPut, path, h...)
}

func (dg *DomainGroup) DELETE(path string, h ...gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodDelete, path, h...)
}

// Group declares a subgroup mounted below this group's prefix
func (dg *DomainGroup) Group(name, prefix string) *DomainGroup {
	child := NewDomainGroup(name, prefix)
	dg.children = append(dg.children, child)
	return child
}

// RegisterRoutes implements RouteRegistrar
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group(dg.prefix, dg.middleware...)
	for _, e := range dg.endpoints {
		g.Handle(e.Method, e.Path, e.handlers...)
	}
	for _, child := range dg.children {
		child.RegisterRoutes(g)
	}
}

// Routes lists the group's endpoints, subgroups included, prefixed with the
// group prefix
func (dg *DomainGroup) Routes() []Route {
	var out []Route
	for _, e := range dg.endpoints {
		out = append(out, Route{e.Method, joinPaths(dg.prefix, e.Path)})
	}
	for _, child := range dg.children {
		for _, r := range child.Routes() {
			out = append(out, Route{r.Method, joinPaths(dg.prefix, r.Path)})
		}
	}
	return out
}

func joinPaths(prefix, path string) string {
	joined := strings.TrimSuffix(prefix, "/") + path
	if joined == "" {
		return "/"
	}
	return joined
}
