package loader

import (
	"context"
	"fmt"
	"net/url"

	"github.com/bull/news-rag/internal/rag"
)

// Route sends locators accepted by Match to Fetcher.
type Route struct {
	Match   func(u *url.URL) bool
	Fetcher Fetcher
}

// Router picks a fetcher per locator. Custom routes are tried first, then
// http(s) locators go to the web fetcher and file:// or bare paths go to the
// file fetcher.
type Router struct {
	routes []Route
	web    Fetcher
	file   Fetcher
}

// NewRouter creates a Router with the given fallbacks and extra routes.
func NewRouter(web, file Fetcher, routes ...Route) *Router {
	return &Router{
		routes: routes,
		web:    web,
		file:   file,
	}
}

// Fetch dispatches locator to the matching fetcher.
func (r *Router) Fetch(ctx context.Context, locator string) (*rag.SourceDocument, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return nil, fmt.Errorf("parse locator: %w", err)
	}

	for _, route := range r.routes {
		if route.Match(u) {
			return route.Fetcher.Fetch(ctx, locator)
		}
	}

	switch u.Scheme {
	case "http", "https":
		if r.web != nil {
			return r.web.Fetch(ctx, locator)
		}
	case "file", "":
		if r.file != nil {
			return r.file.Fetch(ctx, locator)
		}
	}
	return nil, fmt.Errorf("unsupported locator scheme %q", u.Scheme)
}
