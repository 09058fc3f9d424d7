// Package ginadapter binds a Gin engine as the framework behind a warpgate
// Gate.
package ginadapter

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/iaconlabs/warpgate/adapter"
	"github.com/iaconlabs/warpgate/gateway"
)

// ErrNilEngine is returned by Dispatch when the adapter was created without
// an engine.
var ErrNilEngine = errors.New("ginadapter: nil engine")

// GinAdapter dispatches environment-built requests into a *gin.Engine.
type GinAdapter struct {
	engine *gin.Engine
}

var _ gateway.Framework = (*GinAdapter)(nil)

// New wraps e as a gateway framework.
func New(e *gin.Engine) *GinAdapter {
	return &GinAdapter{engine: e}
}

// Dispatch materializes the environment into an *http.Request and serves it
// through the engine into an in-memory recorder.
func (a *GinAdapter) Dispatch(ctx context.Context, bridge gateway.BodyBridge) (gateway.ResponseContext, error) {
	if a.engine == nil {
		return nil, ErrNilEngine
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
	a.engine.ServeHTTP(rec, req)
	return rec, nil
}
