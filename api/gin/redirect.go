package authgin

import (
	"fmt"
	"net/url"
	"strings"
)

type origin struct {
	host string
	port string
}

// RedirectAllowList holds the (host, port) pairs that post-login redirects may target.
type RedirectAllowList struct {
	origins []origin
}

// NewRedirectAllowList parses uris into an allow-list. An empty list allows any target.
func NewRedirectAllowList(uris []string) (*RedirectAllowList, error) {
	a := &RedirectAllowList{}
	for _, raw := range uris {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		o, ok := parseOrigin(raw)
		if !ok {
			return nil, fmt.Errorf("invalid authorized redirect URI %q", raw)
		}
		a.origins = append(a.origins, o)
	}
	return a, nil
}

// Allows reports whether target's host and explicit port match an entry. Scheme, path and
// query are ignored, so https://h and http://h match while http://h:80 does not.
func (a *RedirectAllowList) Allows(target string) bool {
	if a == nil || len(a.origins) == 0 {
		return true
	}
	o, ok := parseOrigin(target)
	if !ok {
		return false
	}
	for _, allowed := range a.origins {
		if allowed == o {
			return true
		}
	}
	return false
}

func parseOrigin(raw string) (origin, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return origin{}, false
	}
	// Only explicit ports are compared; the scheme never contributes one.
	return origin{host: strings.ToLower(u.Hostname()), port: u.Port()}, true
}

// withQueryParam returns target with key=value set in its query string.
func withQueryParam(target, key, value string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
