package session

import (
	"errors"
	"net/http"
	"sort"
	"strings"
)

const (
	// HeaderPrefix marks headers that carry one session cookie each.
	// A session travels as `x-cookie-<name>: <name>=<value>` pairs.
	HeaderPrefix = "x-cookie-"

	// BaseURLHeader carries the upstream base URL on stateless requests.
	BaseURLHeader = "x-compass-base-url"
)

// ErrNoSession is returned by Decode when no session headers are present.
var ErrNoSession = errors.New("no session cookies present")

// canonicalNames restores upstream-significant casing for cookie names
// that transport layers commonly lowercase.
var canonicalNames = map[string]string{
	"asp.net_sessionid": "ASP.NET_SessionId",
}

// Encode maps each cookie of s to one x-cookie-<name> header. The
// header value repeats the name as <name>=<value>: transports
// case-normalize header keys in flight, so the value is what carries
// the upstream-significant name casing across hops.
func Encode(s Session) http.Header {
	h := make(http.Header, len(s.Cookies))
	for _, c := range s.Cookies {
		c, ok := normalize(c)
		if !ok {
			continue
		}
		h[HeaderPrefix+c.Name] = []string{c.Name + "=" + c.Value}
	}
	return h
}

// Apply copies encoded session headers into dst, typically a
// response header map.
func Apply(dst http.Header, s Session) {
	for k, v := range Encode(s) {
		dst[k] = v
	}
}

// Decode rebuilds a session from the x-cookie-* headers in h.
// Matching is case-insensitive on the prefix, and case-variant
// duplicates of the same cookie name collapse to a single cookie,
// so a transport that normalizes header casing neither loses nor
// duplicates cookies. Cookie-name casing is restored from the
// <name>=<value> encoding when present; bare values fall back to the
// header-derived name. Zero matching headers fail with ErrNoSession.
func Decode(h http.Header) (Session, error) {
	seen := make(map[string]int)
	var cookies []Cookie

	for key, values := range h {
		if len(key) <= len(HeaderPrefix) || !strings.EqualFold(key[:len(HeaderPrefix)], HeaderPrefix) {
			continue
		}
		if len(values) == 0 {
			continue
		}
		name := key[len(HeaderPrefix):]
		value := values[0]
		// The embedded name is only trusted as a casing carrier: it
		// must match the header-derived name, otherwise the '=' belongs
		// to the cookie value itself.
		if i := strings.IndexByte(value, '='); i > 0 && strings.EqualFold(value[:i], name) {
			name, value = value[:i], value[i+1:]
		}
		c, ok := normalize(Cookie{Name: name, Value: value})
		if !ok {
			continue
		}
		lower := strings.ToLower(c.Name)
		if i, dup := seen[lower]; dup {
			cookies[i].Value = c.Value
			continue
		}
		seen[lower] = len(cookies)
		cookies = append(cookies, c)
	}

	if len(cookies) == 0 {
		return Session{}, ErrNoSession
	}

	// Header maps iterate in random order; keep the result stable.
	sort.Slice(cookies, func(i, j int) bool {
		return cookies[i].Name < cookies[j].Name
	})

	return Session{Cookies: cookies}, nil
}

// normalize validates and repairs cookie shape before use: surrounding
// quotes and whitespace are stripped, empty cookies are dropped, and
// known upstream names get their canonical casing back. The table only
// matters for bare header values that carry no embedded name.
func normalize(c Cookie) (Cookie, bool) {
	c.Name = strings.TrimSpace(c.Name)
	c.Value = strings.Trim(strings.TrimSpace(c.Value), `"`)
	if c.Name == "" || c.Value == "" {
		return Cookie{}, false
	}
	if canonical, ok := canonicalNames[strings.ToLower(c.Name)]; ok {
		c.Name = canonical
	}
	return c, true
}
