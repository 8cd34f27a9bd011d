package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/jonathan/job-match-pro/internal/db"
)

// Store is the persistence surface the dispatcher needs.
type Store interface {
	ListEnabledNotificationRecipients(ctx context.Context) ([]db.Recipient, error)
	ListUnnotifiedMatches(ctx context.Context, userID uuid.UUID, minScore float64) ([]db.MatchedJob, error)
	MarkMatchesNotified(ctx context.Context, userID uuid.UUID, jobIDs []int64) error
}

// Dispatcher runs the periodic notification pass: for every user with email
// notifications enabled it collects un-notified matches above the user's
// threshold, sends one digest, and marks the matches notified only after the
// provider confirmed delivery. A failed delivery leaves the matches pending
// for the next pass.
type Dispatcher struct {
	store  Store
	sender Sender
}

// NewDispatcher wires a dispatcher.
func NewDispatcher(store Store, sender Sender) *Dispatcher {
	return &Dispatcher{store: store, sender: sender}
}

// ProcessNotifications executes one notification pass. It returns an error
// only when the recipient list cannot be loaded; per-recipient failures are
// logged and the pass continues.
func (d *Dispatcher) ProcessNotifications(ctx context.Context) error {
	recipients, err := d.store.ListEnabledNotificationRecipients(ctx)
	if err != nil {
		return fmt.Errorf("failed to load notification recipients: %w", err)
	}
	log.Printf("[notifier] Processing notifications for %d recipient(s)", len(recipients))

	for _, recipient := range recipients {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.notifyRecipient(ctx, recipient); err != nil {
			log.Printf("[notifier] Notification for %s failed: %v — continuing", recipient.Email, err)
		}
	}
	return nil
}

func (d *Dispatcher) notifyRecipient(ctx context.Context, recipient db.Recipient) error {
	matches, err := d.store.ListUnnotifiedMatches(ctx, recipient.UserID, recipient.MinScore)
	if err != nil {
		return fmt.Errorf("failed to load matches: %w", err)
	}
	if len(matches) == 0 {
		return nil
	}

	if err := d.sender.Send(ctx, recipient.Email, matches); err != nil {
		// Not marked notified: the matches stay pending for the next pass.
		return err
	}

	jobIDs := make([]int64, len(matches))
	for i, m := range matches {
		jobIDs[i] = m.ID
	}
	if err := d.store.MarkMatchesNotified(ctx, recipient.UserID, jobIDs); err != nil {
		return fmt.Errorf("sent digest but failed to mark matches notified: %w", err)
	}

	log.Printf("[notifier] Sent digest with %d match(es) to %s", len(matches), recipient.Email)
	return nil
}
