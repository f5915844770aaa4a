// Package notify fans in-app notifications out to platform users. Recipients
// are resolved by operational area (alert subscription rules) or by admin
// role; one notification row is written per recipient.
package notify

import (
	"context"
	"log/slog"

	"agencydesk/internal/types"
)

// RecipientStore is the subset of db.NotificationRepo the notifier needs.
type RecipientStore interface {
	ListRecipientsByArea(ctx context.Context, area string) ([]string, error)
	ListAdminUserIDs(ctx context.Context) ([]string, error)
	InsertForUsers(ctx context.Context, userIDs []string, n types.AreaNotification) (int, error)
}

// Notifier delivers in-app notifications. Delivery is best-effort from the
// caller's point of view: an empty recipient set is a valid no-op, and
// callers are expected to log (not propagate) failures on non-critical paths.
type Notifier struct {
	store  RecipientStore
	logger *slog.Logger
}

// NewNotifier creates a Notifier over the given recipient store.
func NewNotifier(store RecipientStore, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{store: store, logger: logger}
}

// NotifyArea delivers a notification to every user subscribed to the
// notification's area. Returns the number of notifications written.
func (n *Notifier) NotifyArea(ctx context.Context, notification types.AreaNotification) (int, error) {
	userIDs, err := n.store.ListRecipientsByArea(ctx, notification.Area)
	if err != nil {
		return 0, err
	}
	if len(userIDs) == 0 {
		n.logger.DebugContext(ctx, "no recipients for area notification",
			"area", notification.Area,
			"title", notification.Title,
		)
		return 0, nil
	}
	return n.store.InsertForUsers(ctx, userIDs, notification)
}

// NotifyAdmins delivers a system notification to every active administrator.
// Returns the number of notifications written.
func (n *Notifier) NotifyAdmins(ctx context.Context, title, message, link string, metadata types.JSONMap) (int, error) {
	userIDs, err := n.store.ListAdminUserIDs(ctx)
	if err != nil {
		return 0, err
	}
	if len(userIDs) == 0 {
		return 0, nil
	}
	return n.store.InsertForUsers(ctx, userIDs, types.AreaNotification{
		Title:    title,
		Message:  message,
		Link:     link,
		Type:     "system",
		Metadata: metadata,
	})
}
