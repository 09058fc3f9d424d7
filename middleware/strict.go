// Package middleware provides optional framework wrappers that sit between
// a warpgate Gate and the bound application framework.
package middleware

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/iaconlabs/warpgate/gateway"
)

// Internal singleton instance to allow custom tag registration.
var defaultValidator = validator.New()

// GetValidator returns the shared validator instance used by Strict. Use it
// to register custom validation tags.
func GetValidator() *validator.Validate {
	return defaultValidator
}

// envRecord mirrors the environment fields the protocol contract requires.
// The bare core never validates these; Strict makes the contract explicit
// for hosts that prefer a deterministic failure over undefined behavior.
type envRecord struct {
	Method     string `validate:"required"`
	RemoteAddr string `validate:"required"`
	Protocol   string `validate:"required,startswith=HTTP/"`
	RequestURI string `validate:"required"`
	ServerPort string `validate:"omitempty,number"`
}

type strictFramework struct {
	next gateway.Framework
}

// Strict wraps a framework with pre-dispatch validation of the environment
// mapping. An invalid environment surfaces as a dispatch error, so the
// Gate answers it with its fixed fallback response instead of undefined
// URI-construction behavior.
func Strict(next gateway.Framework) gateway.Framework {
	return strictFramework{next: next}
}

func (s strictFramework) Dispatch(ctx context.Context, bridge gateway.BodyBridge) (gateway.ResponseContext, error) {
	env := bridge.Env()
	record := envRecord{
		Method:     env.Get(gateway.KeyMethod),
		RemoteAddr: env.Get(gateway.KeyRemoteAddr),
		Protocol:   env.Get(gateway.KeyProtocol),
		RequestURI: env.Get(gateway.KeyRequestURI),
		ServerPort: env.Get(gateway.KeyServerPort),
	}
	if err := defaultValidator.Struct(record); err != nil {
		return nil, fmt.Errorf("middleware: invalid gateway environment: %w", err)
	}
	return s.next.Dispatch(ctx, bridge)
}
