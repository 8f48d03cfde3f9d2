package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"aibos-vmp/core/ent"
	"aibos-vmp/core/ent/notification"
)

// Inbox serves the read-side operations of a user's notification feed
// (spec 4.J/4.K: List, UnreadCount, MarkRead).
type Inbox struct {
	client *ent.Client
}

// NewInbox constructs an Inbox.
func NewInbox(client *ent.Client) *Inbox {
	return &Inbox{client: client}
}

// UnreadCounts is the breakdown returned by GetUnreadCount.
type UnreadCounts struct {
	Total    int
	Payment  int
	Case     int
	Critical int
}

// List returns the most recent notifications for userID, newest first.
func (i *Inbox) List(ctx context.Context, userID string, limit int) ([]*ent.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := i.client.Notification.Query().
		Where(notification.UserIDEQ(userID)).
		Order(ent.Desc(notification.FieldCreatedAt)).
		Limit(limit).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list notifications for user %s: %w", userID, err)
	}
	return rows, nil
}

// GetUnreadCount returns the unread breakdown for userID (spec 4.J).
func (i *Inbox) GetUnreadCount(ctx context.Context, userID string) (*UnreadCounts, error) {
	rows, err := i.client.Notification.Query().
		Where(
			notification.UserIDEQ(userID),
			notification.IsReadEQ(false),
		).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("count unread for user %s: %w", userID, err)
	}

	counts := &UnreadCounts{Total: len(rows)}
	for _, n := range rows {
		if n.Priority == notification.PriorityCritical {
			counts.Critical++
		}
		switch {
		case strings.HasPrefix(n.Type, "payment_"):
			counts.Payment++
		case strings.HasPrefix(n.Type, "case_") || n.ReferenceType == "case":
			counts.Case++
		}
	}
	return counts, nil
}

// MarkRead marks the given notification IDs read for userID. An empty ids
// slice marks every unread notification read. Re-marking an already-read
// notification is a no-op (spec edge case: repeat MarkRead marks 0 rows).
func (i *Inbox) MarkRead(ctx context.Context, userID string, ids []string) (int, error) {
	q := i.client.Notification.Update().
		Where(
			notification.UserIDEQ(userID),
			notification.IsReadEQ(false),
		)
	if len(ids) > 0 {
		q = q.Where(notification.IDIn(ids...))
	}

	now := time.Now().UTC()
	n, err := q.SetIsRead(true).SetReadAt(now).Save(ctx)
	if err != nil {
		return 0, fmt.Errorf("mark read for user %s: %w", userID, err)
	}
	return n, nil
}
