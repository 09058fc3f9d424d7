package adapter

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sort"

	"github.com/iaconlabs/warpgate/gateway"
)

// ErrNoURI is returned when a request is materialized before the URI
// population step ran, or after it failed.
var ErrNoURI = errors.New("warpgate: request context has no uri")

// HTTPRequestContext is a gateway.RequestContext that materializes into a
// standard *http.Request. It is the shared bridge for every binding whose
// framework speaks net/http.
type HTTPRequestContext struct {
	address    string
	hostname   string
	protocol   string
	user       string
	remoteUser string
	method     string
	secure     bool
	header     http.Header
	uri        *url.URL
	baseURI    *url.URL
	query      url.Values
}

var _ gateway.RequestContext = (*HTTPRequestContext)(nil)

// NewHTTPRequestContext returns an empty context ready for population.
func NewHTTPRequestContext() *HTTPRequestContext {
	return &HTTPRequestContext{header: make(http.Header)}
}

func (c *HTTPRequestContext) SetAddress(addr string)   { c.address = addr }
func (c *HTTPRequestContext) SetHostname(host string)  { c.hostname = host }
func (c *HTTPRequestContext) SetProtocol(proto string) { c.protocol = proto }
func (c *HTTPRequestContext) SetUser(user string)      { c.user = user }
func (c *HTTPRequestContext) SetRemoteUser(user string) {
	c.remoteUser = user
}
func (c *HTTPRequestContext) SetMethod(method string) { c.method = method }
func (c *HTTPRequestContext) SetSecure(secure bool)   { c.secure = secure }
func (c *HTTPRequestContext) SetHeader(name, value string) {
	c.header.Set(name, value)
}
func (c *HTTPRequestContext) SetURI(u *url.URL)     { c.uri = u }
func (c *HTTPRequestContext) SetBaseURI(u *url.URL) { c.baseURI = u }

// ParseQuery delegates to net/url, the generic query parser of this stack.
// A malformed query yields whatever subset url.ParseQuery recovered.
func (c *HTTPRequestContext) ParseQuery(raw string) {
	v, _ := url.ParseQuery(raw)
	c.query = v
}

// URI returns the reconstructed request URI, nil before population.
func (c *HTTPRequestContext) URI() *url.URL { return c.uri }

// BaseURI returns the reconstructed base URI, nil before population.
func (c *HTTPRequestContext) BaseURI() *url.URL { return c.baseURI }

// Query returns the parsed query values, nil when no query was present.
func (c *HTTPRequestContext) Query() url.Values { return c.query }

// Secure reports the populated security flag.
func (c *HTTPRequestContext) Secure() bool { return c.secure }

// Request materializes the populated context into an *http.Request whose
// body reads from the given reader.
func (c *HTTPRequestContext) Request(body io.Reader) (*http.Request, error) {
	if c.uri == nil {
		return nil, ErrNoURI
	}

	req, err := http.NewRequest(c.method, c.uri.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header = c.header
	req.Host = c.uri.Host
	req.RemoteAddr = c.address
	if c.protocol != "" {
		req.Proto = c.protocol
		if major, minor, ok := http.ParseHTTPVersion(c.protocol); ok {
			req.ProtoMajor, req.ProtoMinor = major, minor
		}
	}
	if c.query != nil {
		req.Form = c.query
	}
	if c.remoteUser != "" {
		req.URL.User = url.User(c.remoteUser)
	}
	return req, nil
}

// Recorder is an http.ResponseWriter that doubles as the framework's
// gateway.ResponseContext: net/http family frameworks finalize their
// response by writing into it.
type Recorder struct {
	status      int
	header      http.Header
	body        bytes.Buffer
	wroteHeader bool
}

var (
	_ http.ResponseWriter     = (*Recorder)(nil)
	_ gateway.ResponseContext = (*Recorder)(nil)
)

// NewRecorder returns a Recorder defaulting to status 200.
func NewRecorder() *Recorder {
	return &Recorder{status: http.StatusOK, header: make(http.Header)}
}

// Header implements http.ResponseWriter.
func (r *Recorder) Header() http.Header { return r.header }

// WriteHeader records the status code. Like net/http, only the first call
// counts.
func (r *Recorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.status = code
	r.wroteHeader = true
}

// Write appends to the recorded body.
func (r *Recorder) Write(p []byte) (int, error) {
	r.wroteHeader = true
	return r.body.Write(p)
}

// Flush satisfies frameworks that probe for http.Flusher; everything is
// in memory already.
func (r *Recorder) Flush() {}

// Status implements gateway.ResponseContext.
func (r *Recorder) Status() int { return r.status }

// Headers drains the recorded header map into a flat sequence. http.Header
// carries no insertion order, so names are emitted in sorted order with
// their values in recorded order.
func (r *Recorder) Headers() []gateway.Header {
	names := make([]string, 0, len(r.header))
	for name := range r.header {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]gateway.Header, 0, len(names))
	for _, name := range names {
		for _, value := range r.header[name] {
			out = append(out, gateway.Header{Name: name, Value: value})
		}
	}
	return out
}

// Body returns the recorded body as a single chunk.
func (r *Recorder) Body() gateway.Body {
	return gateway.Chunk(r.body.Bytes())
}
