// Package adapter contains the translation core: the per-request state, the
// request population steps, the URI reconstruction and the response
// normalizer that framework bindings build on.
package adapter

import (
	"bytes"
	"io"

	"github.com/iaconlabs/warpgate/gateway"
)

// State is the per-request arena. One is created at the start of each cycle
// and discarded at its end, so no adapter-owned state ever crosses request
// boundaries. It carries the environment mapping and the output buffer that
// collects direct framework writes.
type State struct {
	env gateway.Env
	out bytes.Buffer
}

var _ gateway.BodyBridge = (*State)(nil)

// NewState creates the arena for one request.
func NewState(env gateway.Env) *State {
	return &State{env: env}
}

// Env returns the environment mapping this request was invoked with.
func (s *State) Env() gateway.Env {
	return s.env
}

// Read forwards a chunked read to the environment's input stream. Return
// values and errors are exactly those of the underlying stream; no buffering
// or retry happens on the input side. An absent stream reads as empty.
func (s *State) Read(p []byte) (int, error) {
	if s.env.Input == nil {
		return 0, io.EOF
	}
	return s.env.Input.Read(p)
}

// Write appends a non-empty fragment to the output buffer. An empty fragment
// is a no-op, never an error.
func (s *State) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return s.out.Write(p)
}

// WriteString appends a non-empty string fragment to the output buffer.
func (s *State) WriteString(p string) (int, error) {
	if p == "" {
		return 0, nil
	}
	return s.out.WriteString(p)
}

// Close implements the finalize hook of the body bridge. It is a no-op:
// the response normalizer alone decides what the body is, because the
// framework may have produced its own body independent of explicit writes.
func (s *State) Close() error {
	return nil
}

// Buffered returns the bytes accumulated by Write so far. It must not be
// consulted before the framework's processing has completed.
func (s *State) Buffered() []byte {
	return s.out.Bytes()
}

// Len returns the output buffer's current length.
func (s *State) Len() int {
	return s.out.Len()
}
