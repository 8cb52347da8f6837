package gamestate

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel"
)

// CommitPending combines all pending state changes into a single atomic transaction and commits them
// to the storage layer. If an error is returned, no storage changes will have been made.
func (m *EntityCommandBuffer) CommitPending(ctx context.Context) error {
	ctx, span := otel.Tracer("gamestate").Start(ctx, "ecb.commit-pending")
	defer span.End()

	pipe, err := m.makePipeOfStorageCommands(ctx)
	if err != nil {
		return err
	}
	if err = pipe.EndTransaction(ctx); err != nil {
		return err
	}

	m.pendingArchIDs = nil

	// All changes were just committed to storage, so stop tracking them locally
	return m.DiscardPending()
}

// isStorageNil reports whether the given error represents a missing key in the storage layer.
func isStorageNil(err error) bool {
	return errors.Is(eris.Cause(err), redis.Nil)
}
