// Package nethttpadapter binds any net/http handler as the application
// framework behind a warpgate Gate. Routers built on net/http, such as
// chi, gorilla/mux or the standard ServeMux, plug in unchanged.
package nethttpadapter

import (
	"context"
	"errors"
	"net/http"

	"github.com/iaconlabs/warpgate/adapter"
	"github.com/iaconlabs/warpgate/gateway"
)

// ErrNilHandler is returned by Dispatch when the adapter was created
// without a handler.
var ErrNilHandler = errors.New("nethttpadapter: nil handler")

// NetHTTPAdapter dispatches environment-built requests into an
// http.Handler and finalizes its recorded response.
type NetHTTPAdapter struct {
	handler http.Handler
}

var _ gateway.Framework = (*NetHTTPAdapter)(nil)

// New wraps h as a gateway framework.
func New(h http.Handler) *NetHTTPAdapter {
	return &NetHTTPAdapter{handler: h}
}

// Dispatch populates a request context from the environment, materializes
// the *http.Request with its body forwarded through the bridge, and serves
// it into an in-memory recorder that doubles as the response context.
func (a *NetHTTPAdapter) Dispatch(ctx context.Context, bridge gateway.BodyBridge) (gateway.ResponseContext, error) {
	if a.handler == nil {
		return nil, ErrNilHandler
	}

	rc := adapter.NewHTTPRequestContext()
	if err := adapter.Populate(rc, bridge.Env()); err != nil {
		return nil, err
	}

	req, err := rc.Request(bridge)
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)

	rec := adapter.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec, nil
}
