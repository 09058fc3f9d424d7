// Package gateway defines the contracts shared by the Warpgate core and its
// framework bindings: the per-request environment mapping handed in by the
// hosting process, the (status, headers, body) triple handed back to it, and
// the interfaces an application framework must implement to sit in between.
package gateway

import (
	"context"
	"io"
	"net/url"
)

// Environment variable names follow the CGI convention used by hosting
// process managers. Adapter-owned keys are namespaced with "warpgate." to
// keep them out of the protocol key space, the same way context keys are
// namespaced elsewhere in this module.
const (
	KeyMethod      = "REQUEST_METHOD"
	KeyRemoteAddr  = "REMOTE_ADDR"
	KeyRemoteHost  = "REMOTE_HOST"
	KeyProtocol    = "SERVER_PROTOCOL"
	KeyServerName  = "SERVER_NAME"
	KeyServerPort  = "SERVER_PORT"
	KeyScriptName  = "SCRIPT_NAME"
	KeyRequestURI  = "REQUEST_URI"
	KeyQueryString = "QUERY_STRING"
	KeyRemoteUser  = "REMOTE_USER"
	KeyHost        = "HTTP_HOST"

	// KeyURLScheme carries the scheme flag set by the hosting process.
	// A request is considered secure iff its value equals SchemeHTTPS.
	KeyURLScheme = "warpgate.url_scheme"

	// SchemeHTTPS is the secure-scheme token.
	SchemeHTTPS = "https"
	// SchemeHTTP is the default scheme when the flag is absent or insecure.
	SchemeHTTP = "http"
)

// Env is the flat environment mapping describing one request. It is owned
// exclusively by the adapter for the duration of that request and is never
// shared across concurrent requests.
type Env struct {
	// Vars holds the protocol metadata: method, address fields, path fields
	// and prefixed header keys.
	Vars map[string]string
	// Input is the request body channel supplied by the hosting process.
	Input io.Reader
}

// Get returns the value for key, or the empty string when absent.
func (e Env) Get(key string) string {
	if e.Vars == nil {
		return ""
	}
	return e.Vars[key]
}

// Has reports whether key is present in the mapping, even with an empty value.
func (e Env) Has(key string) bool {
	if e.Vars == nil {
		return false
	}
	_, ok := e.Vars[key]
	return ok
}

// Header is one name/value pair of the response header sequence.
type Header struct {
	Name  string
	Value string
}

// Response is the triple returned to the hosting process manager. It is
// always well formed, including on internal failure.
type Response struct {
	Status  int
	Headers []Header
	Body    Body
}

// Body is the tagged union of response body representations. Exactly three
// variants exist: Chunk, Chunks, and Stream. The tag is decided at the
// framework boundary; no runtime capability probing happens downstream.
type Body interface {
	body()
}

// Chunk is a single in-memory body.
type Chunk []byte

func (Chunk) body() {}

// Chunks is a body pre-split into an ordered sequence of fragments.
type Chunks [][]byte

func (Chunks) body() {}

// Streamer yields successive body fragments. It returns io.EOF when the
// body is exhausted; the hosting process is expected to iterate until then.
type Streamer interface {
	Next() ([]byte, error)
}

// Stream is a streaming-capable body, passed through to the hosting process
// unchanged.
type Stream struct {
	Streamer
}

func (Stream) body() {}

// NewStream adapts an io.Reader into a Stream body. Fragments share an
// internal buffer and are only valid until the following Next call.
func NewStream(r io.Reader) Stream {
	return Stream{Streamer: &readStreamer{r: r, buf: make([]byte, 4096)}}
}

type readStreamer struct {
	r   io.Reader
	buf []byte
}

func (s *readStreamer) Next() ([]byte, error) {
	n, err := s.r.Read(s.buf)
	if n > 0 {
		return s.buf[:n], nil
	}
	if err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// RequestContext is the framework's structured request record. The adapter
// populates it field by field; ownership stays with the framework.
type RequestContext interface {
	SetAddress(addr string)
	SetHostname(host string)
	SetProtocol(proto string)
	// SetUser is the legacy user field. It is kept in sync with
	// SetRemoteUser for backward compatibility.
	SetUser(user string)
	SetRemoteUser(user string)
	SetMethod(method string)
	SetSecure(secure bool)
	SetHeader(name, value string)
	SetURI(u *url.URL)
	SetBaseURI(u *url.URL)
	// ParseQuery hands the raw query string to the framework's own parser.
	// It is only invoked when the environment carries a non-empty query.
	ParseQuery(raw string)
}

// ResponseContext is the framework's finalized response record.
type ResponseContext interface {
	Status() int
	// Headers drains the header collection into an ordered flat sequence,
	// preserving whatever order the collection provides.
	Headers() []Header
	Body() Body
}

// BodyBridge carries the request body and collects direct response writes
// during one dispatch. Reads forward to the environment's input stream with
// its exact semantics; writes accumulate until the cycle finalizes the
// response. Writing an empty fragment is a no-op.
type BodyBridge interface {
	io.Reader
	io.Writer
	Env() Env
}

// Framework is the dispatch-and-finalize entry point of the application
// framework. Given the environment (via the bridge) it returns a fully
// populated response context, or an error when processing failed at any
// point. Errors never carry partial response state.
type Framework interface {
	Dispatch(ctx context.Context, bridge BodyBridge) (ResponseContext, error)
}

// FrameworkFunc adapts a plain function to the Framework interface.
type FrameworkFunc func(ctx context.Context, bridge BodyBridge) (ResponseContext, error)

// Dispatch calls f.
func (f FrameworkFunc) Dispatch(ctx context.Context, bridge BodyBridge) (ResponseContext, error) {
	return f(ctx, bridge)
}

// Logger is the framework's logging sink.
type Logger interface {
	Error(msg string)
}

// Flusher is the optional flush hook of a Logger. When the sink implements
// it, the cycle flushes once before producing either terminal response.
type Flusher interface {
	Flush()
}
