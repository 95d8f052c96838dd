// Package endpoint derives the URLs the editor uses to reach its kernel
// session: the WebSocket session channel and HTTP API paths, both resolved
// against the location the application is served from.
//
// A Resolver is immutable once built and safe for concurrent use. Resolution
// performs no I/O.
package endpoint

import (
	"net/url"
	"strings"

	"github.com/deepkalilabs/marimo-cosmic/internal/domain"
	cerrors "github.com/deepkalilabs/marimo-cosmic/internal/domain/shared/errors"
	"github.com/deepkalilabs/marimo-cosmic/internal/infrastructure/logging"
)

const (
	// SocketPath is the relative path of the session channel.
	SocketPath = "ws"

	// DefaultDevEndpoint is the host:port of the local kernel server used in
	// development mode.
	DefaultDevEndpoint = "localhost:2718"

	devHostMarker = "localhost"
)

// Resolver maps relative URLs onto absolute session and API endpoints.
type Resolver struct {
	base        domain.BaseLocation
	devMode     DevMode
	devEndpoint string
	logger      *logging.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithDevMode sets how development mode is decided.
func WithDevMode(mode DevMode) Option {
	return func(r *Resolver) {
		r.devMode = mode
	}
}

// WithDevEndpoint overrides the host:port targeted in development mode.
func WithDevEndpoint(hostport string) Option {
	return func(r *Resolver) {
		hostport = strings.TrimSpace(hostport)
		if hostport == "" {
			return
		}
		r.devEndpoint = hostport
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a resolver for an already parsed base location.
func New(base domain.BaseLocation, opts ...Option) *Resolver {
	r := &Resolver{
		base:        base,
		devMode:     DevModeAuto,
		devEndpoint: DefaultDevEndpoint,
		logger:      logging.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.DevelopmentMode() {
		r.logger.Debug("development endpoint override active", logging.Fields{
			"base":         r.base.String(),
			"dev_endpoint": r.devEndpoint,
			"dev_mode":     string(r.devMode),
		})
	}

	return r
}

// NewFromURI parses baseURI and creates a resolver for it. A base that
// cannot be parsed is a deployment error and is returned as a malformed base
// URI error.
func NewFromURI(baseURI string, opts ...Option) (*Resolver, error) {
	base, err := domain.ParseBaseLocation(baseURI)
	if err != nil {
		return nil, err
	}
	return New(base, opts...), nil
}

// Base returns the page base location the resolver was built with.
func (r *Resolver) Base() domain.BaseLocation {
	return r.base
}

// DevelopmentMode reports whether resolution targets the local dev endpoint.
func (r *Resolver) DevelopmentMode() bool {
	switch r.devMode {
	case DevModeOn:
		return true
	case DevModeOff:
		return false
	default:
		return strings.Contains(strings.ToLower(r.base.Host), devHostMarker)
	}
}

// EffectiveBase returns the location relative URLs are resolved against.
func (r *Resolver) EffectiveBase() domain.BaseLocation {
	if r.DevelopmentMode() {
		return domain.BaseLocation{
			Scheme: "http",
			Host:   r.devEndpoint,
			Path:   "/",
		}
	}
	return r.base
}

// SessionURL returns the WebSocket URL of the session channel for sessionID.
// The page's own query parameters are carried along; session_id replaces any
// existing value in place and is appended otherwise. Parameter order is
// preserved. The identifier is not validated.
func (r *Resolver) SessionURL(sessionID domain.SessionID) string {
	params := r.base.QueryParams().Set(domain.QueryParamSessionID, string(sessionID))
	return r.ResolveToWS(SocketPath + "?" + params.Encode())
}

// ResolveToWS turns a relative URL into an absolute ws:// or wss:// URL.
// URLs that already carry a socket scheme are returned unchanged.
func (r *Resolver) ResolveToWS(relativeURL string) string {
	if strings.HasPrefix(relativeURL, "ws:") || strings.HasPrefix(relativeURL, "wss:") {
		return relativeURL
	}

	base := r.EffectiveBase()
	return SocketScheme(base.Scheme) + "://" + base.Host +
		withoutTrailingSlash(base.Path) + "/" + withoutLeadingSlash(relativeURL)
}

// ResolveHTTP resolves path against the effective base using standard URL
// reference resolution. In development mode the base is the dev endpoint
// root, so "api/x" always lands on "/api/x" there.
func (r *Resolver) ResolveHTTP(path string) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, cerrors.NewInvalidInputError("invalid relative URL "+path, err)
	}

	base := r.EffectiveBase().URL()
	return base.ResolveReference(ref), nil
}

// SocketScheme maps an HTTP scheme onto its WebSocket analog.
func SocketScheme(httpScheme string) string {
	if strings.EqualFold(httpScheme, "https") {
		return "wss"
	}
	return "ws"
}

func withoutTrailingSlash(s string) string {
	return strings.TrimSuffix(s, "/")
}

func withoutLeadingSlash(s string) string {
	return strings.TrimPrefix(s, "/")
}
