// Package fiberadapter binds a Fiber v3 application as the framework behind
// a warpgate Gate, bridging the environment mapping into a fasthttp request.
package fiberadapter

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"sync"

	"github.com/gofiber/fiber/v3"
	"github.com/valyala/fasthttp"

	"github.com/iaconlabs/warpgate/adapter"
	"github.com/iaconlabs/warpgate/gateway"
)

// CtxKey is the user-value key under which the dispatch context.Context is
// exposed to Fiber handlers.
const CtxKey = "warpgate.ctx"

// ErrNilApp is returned by Dispatch when the adapter was created without an app.
var ErrNilApp = errors.New("fiberadapter: nil app")

// Pool compartido de contextos fasthttp para no reconstruirlos por petición.
var ctxPool = sync.Pool{
	New: func() any { return new(fasthttp.RequestCtx) },
}

// FiberAdapter dispatches environment-built requests into a *fiber.App.
type FiberAdapter struct {
	app     *fiber.App
	once    sync.Once
	handler fasthttp.RequestHandler
}

var _ gateway.Framework = (*FiberAdapter)(nil)

// New wraps app as a gateway framework.
func New(app *fiber.App) *FiberAdapter {
	return &FiberAdapter{app: app}
}

// Dispatch populates a fasthttp request from the environment, runs the Fiber
// handler chain over a pooled RequestCtx and drains the response. Streamed
// response bodies pass through as gateway.Stream; their RequestCtx is
// retained by the stream and never returns to the pool.
func (a *FiberAdapter) Dispatch(ctx context.Context, bridge gateway.BodyBridge) (gateway.ResponseContext, error) {
	if a.app == nil {
		return nil, ErrNilApp
	}
	a.once.Do(func() { a.handler = a.app.Handler() })

	frc := newFastRequestContext()
	defer frc.release()
	if err := adapter.Populate(frc, bridge.Env()); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(bridge)
	if err != nil {
		return nil, err
	}
	if len(body) > 0 {
		frc.req.SetBody(body)
	}

	fctx := ctxPool.Get().(*fasthttp.RequestCtx)
	fctx.Init(frc.req, frc.remoteAddr(), nil) // Init copia la petición al ctx
	fctx.SetUserValue(CtxKey, ctx)

	a.handler(fctx)

	resp := &fctx.Response
	if resp.IsBodyStream() {
		return &fastResponse{
			status:  resp.StatusCode(),
			headers: drainHeaders(&resp.Header),
			body:    gateway.NewStream(resp.BodyStream()),
		}, nil
	}

	out := &fastResponse{
		status:  resp.StatusCode(),
		headers: drainHeaders(&resp.Header),
		body:    gateway.Chunk(append([]byte(nil), resp.Body()...)),
	}

	// Limpieza antes de devolver al pool.
	fctx.SetUserValue(CtxKey, nil)
	fctx.Request.Reset()
	fctx.Response.Reset()
	ctxPool.Put(fctx)

	return out, nil
}

// Context returns the dispatch context exposed to a Fiber handler, or
// context.Background when the request did not come through this adapter.
func Context(c fiber.Ctx) context.Context {
	if ctx, ok := c.Locals(CtxKey).(context.Context); ok && ctx != nil {
		return ctx
	}
	return context.Background()
}

// fastRequestContext writes the population steps into a fasthttp.Request.
// Fields without a fasthttp slot are kept for completeness of the contract.
type fastRequestContext struct {
	req        *fasthttp.Request
	address    string
	hostname   string
	user       string
	remoteUser string
	secure     bool
	baseURI    *url.URL
}

var _ gateway.RequestContext = (*fastRequestContext)(nil)

func newFastRequestContext() *fastRequestContext {
	return &fastRequestContext{req: fasthttp.AcquireRequest()}
}

func (c *fastRequestContext) release() {
	if c.req != nil {
		fasthttp.ReleaseRequest(c.req)
		c.req = nil
	}
}

func (c *fastRequestContext) SetAddress(addr string)  { c.address = addr }
func (c *fastRequestContext) SetHostname(host string) { c.hostname = host }
func (c *fastRequestContext) SetProtocol(proto string) {
	if proto != "" {
		c.req.Header.SetProtocol(proto)
	}
}
func (c *fastRequestContext) SetUser(user string)       { c.user = user }
func (c *fastRequestContext) SetRemoteUser(user string) { c.remoteUser = user }
func (c *fastRequestContext) SetMethod(method string)   { c.req.Header.SetMethod(method) }
func (c *fastRequestContext) SetSecure(secure bool) {
	c.secure = secure
	if secure {
		// Fiber confía en esta cabecera para c.Scheme() detrás de un proxy.
		c.req.Header.Set(fiber.HeaderXForwardedProto, gateway.SchemeHTTPS)
	}
}
func (c *fastRequestContext) SetHeader(name, value string) { c.req.Header.Set(name, value) }
func (c *fastRequestContext) SetURI(u *url.URL) {
	c.req.SetRequestURI(u.RequestURI())
	c.req.SetHost(u.Host)
}
func (c *fastRequestContext) SetBaseURI(u *url.URL) { c.baseURI = u }

// ParseQuery delegates to fasthttp's own query parser.
func (c *fastRequestContext) ParseQuery(raw string) {
	c.req.URI().SetQueryString(raw)
}

func (c *fastRequestContext) remoteAddr() net.Addr {
	if ip := net.ParseIP(c.address); ip != nil {
		return &net.TCPAddr{IP: ip}
	}
	return &net.TCPAddr{IP: net.IPv4zero}
}

// fastResponse is the finalized response context drained from a RequestCtx.
type fastResponse struct {
	status  int
	headers []gateway.Header
	body    gateway.Body
}

var _ gateway.ResponseContext = (*fastResponse)(nil)

func (r *fastResponse) Status() int               { return r.status }
func (r *fastResponse) Headers() []gateway.Header { return r.headers }
func (r *fastResponse) Body() gateway.Body        { return r.body }

// drainHeaders flattens the response header collection in the order fasthttp
// provides it.
func drainHeaders(h *fasthttp.ResponseHeader) []gateway.Header {
	out := make([]gateway.Header, 0, h.Len())
	h.VisitAll(func(k, v []byte) {
		out = append(out, gateway.Header{Name: string(k), Value: string(v)})
	})
	return out
}
