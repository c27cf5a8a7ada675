package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// DispatchResult reports what Dispatch did. Err is set only when a write failed.
type DispatchResult struct {
	Sent           bool   `json:"sent"`
	RecipientCount int    `json:"recipient_count"`
	IncidentID     uint   `json:"incident_id,omitempty"`
	Reason         string `json:"reason,omitempty"`
	Err            error  `json:"-"`
}

// NotificationDispatcher fans a newly opened incident out to every user.
type NotificationDispatcher struct {
	users         UserStore
	notifications NotificationStore
	logger        *zap.Logger
}

func NewNotificationDispatcher(users UserStore, notifications NotificationStore, logger *zap.Logger) *NotificationDispatcher {
	return &NotificationDispatcher{
		users:         users,
		notifications: notifications,
		logger:        logger,
	}
}

// Dispatch creates one notification per active user for an incident that
// OpenOrSkip has just opened. Anything else is skipped.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, open OpenResult) DispatchResult {
	if open.Incident == nil {
		return DispatchResult{Reason: "no incident"}
	}
	incidentID := open.Incident.ID
	if !open.Opened {
		return DispatchResult{IncidentID: incidentID, Reason: "incident already open"}
	}

	userIDs, err := d.users.ListActiveIDs(ctx)
	if err != nil {
		return DispatchResult{IncidentID: incidentID, Err: fmt.Errorf("failed to list users: %w", err)}
	}
	if len(userIDs) == 0 {
		return DispatchResult{IncidentID: incidentID, Reason: "no registered users"}
	}

	for _, userID := range userIDs {
		if _, err := d.notifications.Create(ctx, userID, incidentID); err != nil {
			return DispatchResult{
				IncidentID: incidentID,
				Err:        fmt.Errorf("failed to notify user %d: %w", userID, err),
			}
		}
	}

	d.logger.Info("Notifications created",
		zap.Uint("incident_id", incidentID),
		zap.Uint("cctv_id", open.Incident.CameraID),
		zap.Int("recipients", len(userIDs)),
	)

	return DispatchResult{Sent: true, RecipientCount: len(userIDs), IncidentID: incidentID}
}
