// Package warpgate translates a gateway-style request environment into a
// structured request for an application framework and turns the framework's
// response back into a protocol-level (status, headers, body) triple. The
// triple is always well formed: when the framework's own processing fails,
// a fixed fallback response is produced instead.
package warpgate

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"strconv"

	"github.com/iaconlabs/warpgate/adapter"
	"github.com/iaconlabs/warpgate/gateway"
)

// fallbackBody is the fixed body of the failure response. No detail of the
// original error ever reaches the client.
const fallbackBody = "Bad request"

// Gate runs the per-request translation cycle against one framework. A Gate
// holds no per-request state and is safe for concurrent use: every request
// gets its own arena, created at cycle start and discarded at cycle end.
type Gate struct {
	framework gateway.Framework
	logger    gateway.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger replaces the default slog-backed sink.
func WithLogger(l gateway.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.logger = l
		}
	}
}

// New creates a Gate dispatching into the given framework.
func New(fw gateway.Framework, opts ...Option) *Gate {
	g := &Gate{
		framework: fw,
		logger:    SlogLogger(log.Default()),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Process runs one full request cycle: it builds the per-request state,
// dispatches into the framework and finalizes the triple. Any error or
// panic raised between preparation and finalization is logged once and
// answered with the fixed fallback; no partial framework state is used on
// that path.
func (g *Gate) Process(ctx context.Context, env gateway.Env) gateway.Response {
	st := adapter.NewState(env)

	rc, err := g.dispatch(ctx, st)
	if err != nil {
		g.logger.Error("warpgate: dispatch failed: " + err.Error())
		g.flush()
		return fallback()
	}

	g.flush()
	return adapter.Normalize(rc, st)
}

// dispatch is the single failure boundary of the cycle. A panicking
// framework is recovered into an ordinary dispatch error.
func (g *Gate) dispatch(ctx context.Context, st *adapter.State) (rc gateway.ResponseContext, err error) {
	defer func() {
		if r := recover(); r != nil {
			rc, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()

	rc, err = g.framework.Dispatch(ctx, st)
	if err == nil && rc == nil {
		err = errors.New("framework returned no response")
	}
	return rc, err
}

// flush fires the optional flush hook. It runs unconditionally before either
// terminal response when the sink supports it.
func (g *Gate) flush() {
	if f, ok := g.logger.(gateway.Flusher); ok {
		f.Flush()
	}
}

func fallback() gateway.Response {
	body := []byte(fallbackBody)
	return gateway.Response{
		Status: http.StatusInternalServerError,
		Headers: []gateway.Header{
			{Name: "Content-Type", Value: "text/plain"},
			{Name: "Content-Length", Value: strconv.Itoa(len(body))},
		},
		Body: gateway.Chunks{body},
	}
}

type slogLogger struct {
	l *log.Logger
}

func (s slogLogger) Error(msg string) {
	s.l.Error(msg)
}

// SlogLogger adapts a *slog.Logger to the gateway.Logger contract.
func SlogLogger(l *log.Logger) gateway.Logger {
	return slogLogger{l: l}
}
