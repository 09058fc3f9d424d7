// Package echoadapter binds an Echo instance as the framework behind a
// warpgate Gate.
package echoadapter

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/iaconlabs/warpgate/adapter"
	"github.com/iaconlabs/warpgate/gateway"
)

// ErrNilEcho is returned by Dispatch when the adapter was created without an
// Echo instance.
var ErrNilEcho = errors.New("echoadapter: nil echo")

// EchoAdapter dispatches environment-built requests into an *echo.Echo.
type EchoAdapter struct {
	echo *echo.Echo
}

var _ gateway.Framework = (*EchoAdapter)(nil)

// New wraps e as a gateway framework.
func New(e *echo.Echo) *EchoAdapter {
	return &EchoAdapter{echo: e}
}

// Dispatch materializes the environment into an *http.Request and serves it
// through Echo's handler chain into an in-memory recorder.
func (a *EchoAdapter) Dispatch(ctx context.Context, bridge gateway.BodyBridge) (gateway.ResponseContext, error) {
	if a.echo == nil {
		return nil, ErrNilEcho
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
	a.echo.ServeHTTP(rec, req)
	return rec, nil
}
