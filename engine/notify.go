package engine

import (
	"context"
	"log"
)

// Notifier delivers a notice to a branch administrator. Fire-and-forget;
// at-least-once delivery is acceptable. Implementations live outside this
// core (push, websocket, email) — the engine only emits.
type Notifier interface {
	Notify(ctx context.Context, branchID BranchID, message string) error
}

// LogNotifier writes notices to the process log. Default wiring for local
// runs and tests.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, branchID BranchID, message string) error {
	log.Printf("[Notify] branch=%s %s", branchID, message)
	return nil
}
