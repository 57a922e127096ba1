// Package core defines the shared types, interfaces and error taxonomy of the
// translation shim.
package core

import "context"

// Completer executes one chat-completion exchange against the configured
// provider. Implementations must honor context cancellation so that a dropped
// client connection aborts the in-flight provider call.
type Completer interface {
	Complete(ctx context.Context, payload ChatPayload) (*Completion, error)
}
