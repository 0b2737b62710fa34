package shelf

import (
	"context"
	"fmt"

	"bookkeeper/internal/util"
)

// MoveState classifies the outcome of a completed move.
type MoveState string

const (
	// MoveConsistent means the add applied and, when one was needed, the
	// compensating remove applied too.
	MoveConsistent MoveState = "consistent"
	// MoveNeedsReconcile means the add applied but the compensating remove
	// failed: the book may transiently sit on two shelves until the next full
	// reload re-derives state from the remote system of record.
	MoveNeedsReconcile MoveState = "needs_reconcile"
)

// MoveResult reports where a book ended up after a move.
type MoveResult struct {
	State           MoveState `json:"state"`
	BookID          string    `json:"bookId"`
	TargetShelfID   string    `json:"targetShelfId"`
	OriginalShelfID string    `json:"originalShelfId,omitempty"`
}

// Syncer moves books between the user-collection shelves against the remote
// shelving API.
type Syncer struct {
	client *Client
}

// NewSyncer constructs a syncer over the given client.
func NewSyncer(client *Client) *Syncer {
	return &Syncer{client: client}
}

// Move puts the book on the target shelf, then best-effort removes it from
// its original user-collection shelf. The add is the commit point: once it
// succeeds the move succeeds, even if the compensating remove fails (the
// result's State says which happened). The remote API only offers independent
// add/remove calls, so a failed remove leaves a duplicate rather than losing
// the book from every shelf.
func (s *Syncer) Move(ctx context.Context, token, bookID, targetShelfID, originalShelfID string) (MoveResult, error) {
	if token == "" {
		return MoveResult{}, ErrSessionExpired
	}

	if err := s.client.AddVolume(ctx, token, targetShelfID, bookID); err != nil {
		return MoveResult{}, fmt.Errorf("add volume to shelf %s: %w", targetShelfID, err)
	}

	res := MoveResult{
		State:           MoveConsistent,
		BookID:          bookID,
		TargetShelfID:   targetShelfID,
		OriginalShelfID: originalShelfID,
	}
	if originalShelfID != "" && originalShelfID != targetShelfID && IsUserCollection(originalShelfID) {
		if err := s.client.RemoveVolume(ctx, token, originalShelfID, bookID); err != nil {
			util.LoggerFromContext(ctx).Warn("compensating remove failed",
				"book_id", bookID, "shelf_id", originalShelfID, "err", err)
			res.State = MoveNeedsReconcile
		}
	}
	return res, nil
}

// Remove takes the book off a single shelf. Nothing to compensate.
func (s *Syncer) Remove(ctx context.Context, token, bookID, shelfID string) error {
	if token == "" {
		return ErrSessionExpired
	}
	if err := s.client.RemoveVolume(ctx, token, shelfID, bookID); err != nil {
		return fmt.Errorf("remove volume from shelf %s: %w", shelfID, err)
	}
	return nil
}
