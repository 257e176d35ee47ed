package translator

import (
	"context"
	"net/url"
	"strings"
)

// Router dispatches each endpoint to a backend by URL scheme. Schemes without
// a registered backend go to the default one.
type Router struct {
	def     Backend
	schemes map[string]Backend
}

func NewRouter(def Backend) *Router {
	return &Router{def: def, schemes: make(map[string]Backend)}
}

// Handle registers b for endpoints with the given scheme.
func (r *Router) Handle(scheme string, b Backend) *Router {
	r.schemes[strings.ToLower(scheme)] = b
	return r
}

func (r *Router) Name() string {
	return "router"
}

func (r *Router) Invoke(ctx context.Context, endpointURL string, req TranslateRequest) (string, error) {
	return r.backendFor(endpointURL).Invoke(ctx, endpointURL, req)
}

func (r *Router) backendFor(endpointURL string) Backend {
	u, err := url.Parse(endpointURL)
	if err != nil {
		return r.def
	}
	if b, ok := r.schemes[strings.ToLower(u.Scheme)]; ok {
		return b
	}
	return r.def
}
