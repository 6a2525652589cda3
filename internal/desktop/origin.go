package desktop

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Origin is a parsed connect URL: scheme, host/port, and base path. Ported
// from the original source's client/server_connection.rs Origin::from_str.
type Origin struct {
	Cleartext bool
	Host      string
	Port      uint16
	Path      string
}

// ParseOrigin parses a twilightc:// / twilight:// / http(s):// URL per the
// CLI scheme table in spec.md §6. An empty scheme defaults to twilight. A
// trailing slash forces an empty base path; otherwise an empty URL path
// defaults to "/twilight".
func ParseOrigin(s string) (Origin, error) {
	u, err := url.Parse(s)
	if err != nil {
		return Origin{}, fmt.Errorf("desktop: invalid URL: %w", err)
	}

	if u.User != nil {
		return Origin{}, fmt.Errorf("desktop: URL must not contain username or password")
	}
	if u.RawQuery != "" {
		return Origin{}, fmt.Errorf("desktop: URL must not contain query")
	}
	if u.Fragment != "" {
		return Origin{}, fmt.Errorf("desktop: URL must not contain fragment")
	}

	var cleartext bool
	var defaultPort uint16
	switch u.Scheme {
	case "", "twilight":
		cleartext, defaultPort = false, 1517
	case "twilightc":
		cleartext, defaultPort = true, 1518
	case "http":
		cleartext, defaultPort = true, 80
	case "https":
		cleartext, defaultPort = false, 443
	default:
		return Origin{}, fmt.Errorf("desktop: URL contains unknown scheme %q", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return Origin{}, fmt.Errorf("desktop: URL must contain a host")
	}

	port := defaultPort
	if p := u.Port(); p != "" {
		parsed, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return Origin{}, fmt.Errorf("desktop: invalid port %q: %w", p, err)
		}
		port = uint16(parsed)
	}

	var path string
	if strings.HasSuffix(s, "/") {
		path = ""
	} else if u.Path == "" || u.Path == "/" {
		path = "/twilight"
	} else {
		path = u.Path
	}

	return Origin{Cleartext: cleartext, Host: host, Port: port, Path: path}, nil
}

// String renders the Origin back into a canonical URL form.
func (o Origin) String() string {
	scheme := "twilight"
	switch {
	case o.Cleartext && o.Port == 1518:
		scheme = "twilightc"
	case o.Cleartext:
		scheme = "http"
	case o.Port == 443:
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d%s", scheme, o.Host, o.Port, o.Path)
}
