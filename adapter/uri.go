package adapter

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/iaconlabs/warpgate/gateway"
)

const (
	defaultPort = "80"
	upperhex    = "0123456789ABCDEF"

	// reservedChars is the generic-URI reserved set. Escapes of these bytes
	// are never undone while interpreting the path: downstream routing
	// depends on the raw-vs-decoded distinction, so an encoded slash must
	// stay an encoded slash. This is deliberately not full decoding.
	reservedChars = ";/?:@&=+$,"

	// markChars are always safe, both decoded and when re-escaping.
	markChars = "-_.!~*'()"
)

// PopulateURIs rebuilds the fully qualified request URI and the base URI
// from the fragmented environment fields and sets both on the request
// context as scheme-qualified URI values.
//
// The host comes from the explicit Host header field, falling back to the
// server name; a missing host and server name is undefined behavior upstream
// and is not guarded here. The port defaults to 80 and is only appended when
// non-default. The path keeps reserved-character escapes encoded and forces
// any surviving literal '?' to %3F so it can never read as a query
// delimiter. The query string, when present, is appended verbatim: it is
// already percent-encoded by the upstream producer.
func PopulateURIs(rc gateway.RequestContext, env gateway.Env) error {
	scheme := gateway.SchemeHTTP
	if env.Get(gateway.KeyURLScheme) == gateway.SchemeHTTPS {
		scheme = gateway.SchemeHTTPS
	}

	host := env.Get(gateway.KeyHost)
	if host == "" {
		host = env.Get(gateway.KeyServerName)
	}
	port := env.Get(gateway.KeyServerPort)
	if port == "" {
		port = defaultPort
	}

	base := env.Get(gateway.KeyScriptName)
	if base == "" {
		base = "/"
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	raw := env.Get(gateway.KeyRequestURI)
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[:i]
	}
	path := escapePath(decodeUnreserved(raw))
	path = strings.TrimLeft(path, "/")

	authority := scheme + "://" + hostWithPort(host, port)

	target := authority + "/" + path
	if q := env.Get(gateway.KeyQueryString); q != "" {
		target += "?" + q
	}

	uri, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("warpgate: rebuild request uri: %w", err)
	}
	baseURI, err := url.Parse(authority + base)
	if err != nil {
		return fmt.Errorf("warpgate: rebuild base uri: %w", err)
	}

	rc.SetURI(uri)
	rc.SetBaseURI(baseURI)
	return nil
}

// hostWithPort strips a redundant default-port suffix some gateway
// environments append to the host, then re-appends ":port" only when the
// port is non-default and the host does not already carry a colon.
func hostWithPort(host, port string) string {
	if h, ok := strings.CutSuffix(host, ":80"); ok {
		host = h
	} else if h, ok := strings.CutSuffix(host, ":443"); ok {
		host = h
	}
	if port != "80" && port != "443" && !strings.Contains(host, ":") {
		host += ":" + port
	}
	return host
}

// decodeUnreserved applies the partial percent-decoding of the path: a %XX
// sequence is decoded only when the escaped byte is outside the reserved
// set. Reserved escapes, malformed sequences and escaped '%' itself pass
// through byte for byte, so already-escaped input round-trips unchanged.
func decodeUnreserved(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '%' && i+2 < len(s) {
			hi, okHi := unhex(s[i+1])
			lo, okLo := unhex(s[i+2])
			if okHi && okLo {
				decoded := hi<<4 | lo
				if decoded != '%' && !strings.ContainsRune(reservedChars, rune(decoded)) {
					b.WriteByte(decoded)
				} else {
					b.WriteString(s[i : i+3])
				}
				i += 2
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// escapePath re-escapes the decoded path with the generic-character table,
// with one override: a literal '?' is always forced to its percent-encoding
// because at this point it is structurally ambiguous. '%' is left alone so
// the escapes preserved by decodeUnreserved survive.
func escapePath(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '?':
			b.WriteString("%3F")
		case escapeNeeded(c):
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&0xf])
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func escapeNeeded(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return false
	case strings.IndexByte(markChars, c) >= 0:
		return false
	case strings.IndexByte(reservedChars, c) >= 0:
		return false
	case c == '[' || c == ']' || c == '%':
		return false
	}
	return true
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
