package domain

import (
	"net/url"
	"strconv"
	"strings"
)

// QueryParam is one name/value pair of a query string.
type QueryParam struct {
	Name  string
	Value string
}

// QueryParams is a query string as an ordered list of pairs. Parsing follows
// the browser's URLSearchParams: pairs keep their order, empty segments are
// skipped and escapes that do not decode are kept literally.
type QueryParams []QueryParam

// ParseQueryParams splits raw (without the leading '?') into pairs.
func ParseQueryParams(raw string) QueryParams {
	raw = strings.TrimPrefix(raw, "?")
	if raw == "" {
		return nil
	}

	var params QueryParams
	for _, segment := range strings.Split(raw, "&") {
		if segment == "" {
			continue
		}
		name, value, _ := strings.Cut(segment, "=")
		params = append(params, QueryParam{
			Name:  unescapeLenient(name),
			Value: unescapeLenient(value),
		})
	}
	return params
}

// Get returns the first value for name, or "" when it is absent.
func (q QueryParams) Get(name string) string {
	for _, p := range q {
		if p.Name == name {
			return p.Value
		}
	}
	return ""
}

// Set returns a copy of q where the first pair named name carries value and
// any later pairs with that name are dropped. A missing name is appended.
func (q QueryParams) Set(name, value string) QueryParams {
	out := make(QueryParams, 0, len(q)+1)
	found := false
	for _, p := range q {
		if p.Name != name {
			out = append(out, p)
			continue
		}
		if !found {
			out = append(out, QueryParam{Name: name, Value: value})
			found = true
		}
	}
	if !found {
		out = append(out, QueryParam{Name: name, Value: value})
	}
	return out
}

// Values converts q to url.Values. Order between names is lost.
func (q QueryParams) Values() url.Values {
	v := make(url.Values, len(q))
	for _, p := range q {
		v.Add(p.Name, p.Value)
	}
	return v
}

// Encode serializes q in its own order.
func (q QueryParams) Encode() string {
	var b strings.Builder
	for i, p := range q {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

func unescapeLenient(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return v
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '+':
			b.WriteByte(' ')
		case c == '%' && i+2 < len(s):
			n, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
			if err != nil {
				b.WriteByte(c)
				continue
			}
			b.WriteByte(byte(n))
			i += 2
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
