package agency

import (
	"context"
	"slices"

	"github.com/roach88/tourdesk/internal/schema"
)

// SaveAIConversation stores a new conversation. The id is assigned when
// missing and the timestamp is always set to the current time.
func (db *DB) SaveAIConversation(ctx context.Context, c AIConversation) (AIConversation, error) {
	if c.Messages == nil {
		c.Messages = []Message{}
	}
	c.Timestamp = db.now()
	return addAs(ctx, db, schema.AIConversations, c)
}

// GetAIConversations returns every conversation, most recent first.
func (db *DB) GetAIConversations(ctx context.Context) ([]AIConversation, error) {
	all, err := listAs[AIConversation](ctx, db, schema.AIConversations)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(all, func(a, b AIConversation) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return all, nil
}

// SaveCustomerNote stores a new note. The id is assigned when missing and
// the timestamp is always set to the current time.
func (db *DB) SaveCustomerNote(ctx context.Context, n CustomerNote) (CustomerNote, error) {
	n.Timestamp = db.now()
	return addAs(ctx, db, schema.CustomerNotes, n)
}

// GetCustomerNotes returns notes most recent first. A non-empty customerID
// keeps only that customer's notes.
func (db *DB) GetCustomerNotes(ctx context.Context, customerID string) ([]CustomerNote, error) {
	var (
		notes []CustomerNote
		err   error
	)
	if customerID != "" {
		notes, err = findAs[CustomerNote](ctx, db, schema.CustomerNotes, "customerId", customerID)
	} else {
		notes, err = listAs[CustomerNote](ctx, db, schema.CustomerNotes)
	}
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(notes, func(a, b CustomerNote) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return notes, nil
}
