package adapter

import (
	"github.com/iaconlabs/warpgate/gateway"
)

// Normalize produces the protocol-level response triple after the
// framework's dispatch-and-finalize cycle completed. It runs exactly once
// per request. The body representation is chosen from the framework's tagged
// body and the output buffer:
//
//  1. an empty framework chunk with a non-empty output buffer means explicit
//     writes were used instead of the framework's native body: the buffer
//     becomes a single chunk;
//  2. a streaming body passes through unchanged, the streaming contract is
//     delegated to the hosting process;
//  3. anything else is wrapped as a one-element sequence, which covers plain
//     scalar bodies and pre-split sequences uniformly.
//
// The status code and the drained header sequence are copied verbatim.
func Normalize(rc gateway.ResponseContext, st *State) gateway.Response {
	resp := gateway.Response{
		Status:  rc.Status(),
		Headers: rc.Headers(),
	}

	switch b := rc.Body().(type) {
	case gateway.Chunk:
		if len(b) == 0 && st.Len() > 0 {
			resp.Body = gateway.Chunk(st.Buffered())
		} else {
			resp.Body = gateway.Chunks{b}
		}
	case gateway.Stream:
		resp.Body = b
	case gateway.Chunks:
		resp.Body = b
	default:
		if st.Len() > 0 {
			resp.Body = gateway.Chunk(st.Buffered())
		} else {
			resp.Body = gateway.Chunks{[]byte{}}
		}
	}
	return resp
}
