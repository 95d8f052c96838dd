package domain

import (
	"net/url"
	"strings"

	cerrors "github.com/deepkalilabs/marimo-cosmic/internal/domain/shared/errors"
)

// BaseLocation describes where the application is served from: the parts of
// the page base URI used to resolve relative links.
type BaseLocation struct {
	Scheme   string
	Host     string
	Path     string
	RawQuery string
}

// ParseBaseLocation parses an absolute base URI. Relative or host-less
// inputs are rejected with a malformed base URI error. The host is
// lowercased.
func ParseBaseLocation(raw string) (BaseLocation, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return BaseLocation{}, cerrors.NewMalformedBaseURIError(raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return BaseLocation{}, cerrors.NewMalformedBaseURIError(raw, nil)
	}

	return BaseLocation{
		Scheme:   u.Scheme,
		Host:     strings.ToLower(u.Host),
		Path:     u.EscapedPath(),
		RawQuery: u.RawQuery,
	}, nil
}

// MustParseBaseLocation is like ParseBaseLocation but panics on error.
func MustParseBaseLocation(raw string) BaseLocation {
	loc, err := ParseBaseLocation(raw)
	if err != nil {
		panic(err)
	}
	return loc
}

// Hostname returns the host without any port.
func (l BaseLocation) Hostname() string {
	u := url.URL{Host: l.Host}
	return u.Hostname()
}

// Query returns the page query parameters. Pairs that fail to decode are
// kept with their raw text.
func (l BaseLocation) Query() url.Values {
	return l.QueryParams().Values()
}

// QueryParams returns the page query parameters in page order.
func (l BaseLocation) QueryParams() QueryParams {
	return ParseQueryParams(l.RawQuery)
}

// URL returns the location as a *url.URL.
func (l BaseLocation) URL() *url.URL {
	u := &url.URL{
		Scheme:   l.Scheme,
		Host:     l.Host,
		RawQuery: l.RawQuery,
	}
	if p, err := url.PathUnescape(l.Path); err == nil {
		u.Path = p
		u.RawPath = l.Path
	} else {
		u.Path = l.Path
	}
	return u
}

// String reassembles the absolute URI.
func (l BaseLocation) String() string {
	return l.URL().String()
}
