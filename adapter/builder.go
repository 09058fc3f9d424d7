package adapter

import (
	"net/textproto"
	"strings"

	"github.com/iaconlabs/warpgate/gateway"
)

// Recognized header-source prefixes. A mapping key qualifies as a header
// source iff it matches one of these, case-insensitively. The HTTP_ prefix
// is scheme syntax and is stripped; the CONTENT_ and COOKIE families are
// header names in their own right and are kept whole.
const (
	prefixHTTP    = "HTTP"
	prefixContent = "CONTENT"
	prefixCookie  = "COOKIE"
)

// Populate runs the three independent population steps against the request
// context, then the conditional query gate. The steps do not depend on each
// other and any of them can also be invoked on its own.
func Populate(rc gateway.RequestContext, env gateway.Env) error {
	PopulateConnection(rc, env)
	PopulateHeaders(rc, env)
	if err := PopulateURIs(rc, env); err != nil {
		return err
	}
	PopulateQuery(rc, env)
	return nil
}

// PopulateConnection copies the connection metadata out of the environment.
// The remote address is always present by protocol contract; the remote host
// is optional and its absence is not an error. The legacy user field and its
// replacement are both set from the same value.
func PopulateConnection(rc gateway.RequestContext, env gateway.Env) {
	rc.SetAddress(env.Get(gateway.KeyRemoteAddr))
	if env.Has(gateway.KeyRemoteHost) {
		rc.SetHostname(env.Get(gateway.KeyRemoteHost))
	}
	rc.SetProtocol(env.Get(gateway.KeyProtocol))

	user := env.Get(gateway.KeyRemoteUser)
	rc.SetUser(user)
	rc.SetRemoteUser(user)

	rc.SetMethod(env.Get(gateway.KeyMethod))
	rc.SetSecure(env.Get(gateway.KeyURLScheme) == gateway.SchemeHTTPS)
}

// PopulateHeaders scans every mapping key, normalizes the ones that qualify
// as header sources and stores their values under the resulting field names.
// Mapping keys carry no ordering guarantee, so when two keys normalize to
// the same field name the last write wins.
func PopulateHeaders(rc gateway.RequestContext, env gateway.Env) {
	for key, value := range env.Vars {
		name, ok := headerName(key)
		if !ok {
			continue
		}
		rc.SetHeader(name, value)
	}
}

// PopulateQuery hands the raw query string to the framework's parser, iff a
// non-empty query is present. The string is never re-encoded here.
func PopulateQuery(rc gateway.RequestContext, env gateway.Env) {
	if q := env.Get(gateway.KeyQueryString); q != "" {
		rc.ParseQuery(q)
	}
}

// headerName normalizes one environment key into a header field name. It
// reports false for keys that are not header sources.
func headerName(key string) (string, bool) {
	upper := strings.ToUpper(key)
	switch {
	case hasWordPrefix(upper, prefixHTTP):
		key = key[len(prefixHTTP)+1:]
	case hasWordPrefix(upper, prefixContent), strings.HasPrefix(upper, prefixCookie):
		// kept whole
	default:
		return "", false
	}
	name := strings.NewReplacer("_", "-", " ", "-").Replace(key)
	return textproto.CanonicalMIMEHeaderKey(name), true
}

// hasWordPrefix reports whether s starts with prefix followed by a word
// separator, so that e.g. HTTPS_ keys do not read as HTTP_ header sources.
func hasWordPrefix(s, prefix string) bool {
	if !strings.HasPrefix(s, prefix) || len(s) <= len(prefix) {
		return false
	}
	sep := s[len(prefix)]
	return sep == '_' || sep == '-'
}
