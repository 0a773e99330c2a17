package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/pitchey/ndagate/internal/models"
	"github.com/pitchey/ndagate/internal/realtime"
	apperrors "github.com/pitchey/ndagate/pkg/errors"
)

// NotificationDispatcher delivers lifecycle events to users. The engine calls it after a
// transition commits and only logs the returned error.
type NotificationDispatcher interface {
	Notify(ctx context.Context, recipientID, eventType string, payload map[string]any) error
}

type noopDispatcher struct{}

func (noopDispatcher) Notify(context.Context, string, string, map[string]any) error { return nil }

// NotificationDTO represents the API-friendly notification payload.
type NotificationDTO struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Severity  string         `json:"severity"`
	ActionURL string         `json:"action_url,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	IsRead    bool           `json:"is_read"`
	CreatedAt time.Time      `json:"created_at"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
}

type notificationTemplate struct {
	title    string
	message  string
	severity string
}

var notificationTemplates = map[string]notificationTemplate{
	EventRequested:      {"New NDA request", "Someone requested access to your pitch", "info"},
	EventApproved:       {"NDA approved", "Your NDA request was approved and is ready to sign", "success"},
	EventRejected:       {"NDA request declined", "Your NDA request was declined", "warning"},
	EventSigned:         {"NDA signed", "An NDA for your pitch was signed", "success"},
	EventRevoked:        {"NDA revoked", "Your access to a pitch was revoked", "warning"},
	EventExpired:        {"NDA expired", "Your NDA has expired", "info"},
	EventRequestExpired: {"NDA request expired", "An NDA request expired before it was completed", "info"},
}

// NotificationService persists in-app notifications and pushes them to connected clients.
type NotificationService struct {
	db  *gorm.DB
	hub *realtime.Hub
}

// NewNotificationService constructs a NotificationService. hub may be nil.
func NewNotificationService(db *gorm.DB, hub *realtime.Hub) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	return &NotificationService{db: db, hub: hub}, nil
}

// Notify stores the event for the recipient and broadcasts it on the ndas stream.
func (s *NotificationService) Notify(ctx context.Context, recipientID, eventType string, payload map[string]any) error {
	ctx = ensureContext(ctx)
	recipientID = strings.TrimSpace(recipientID)
	if recipientID == "" {
		return errors.New("notification service: recipient is required")
	}
	eventType = strings.TrimSpace(eventType)
	if eventType == "" {
		return errors.New("notification service: event type is required")
	}

	tmpl, ok := notificationTemplates[eventType]
	if !ok {
		tmpl = notificationTemplate{title: eventType, severity: "info"}
	}

	metadata, err := encodeJSON(payload)
	if err != nil {
		return fmt.Errorf("notification service: marshal metadata: %w", err)
	}

	notification := models.Notification{
		UserID:    recipientID,
		Type:      eventType,
		Title:     tmpl.title,
		Message:   tmpl.message,
		Severity:  tmpl.severity,
		ActionURL: actionURL(payload),
		Metadata:  metadata,
	}
	if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
		return fmt.Errorf("notification service: create notification: %w", err)
	}

	dto := mapNotification(notification)
	s.broadcast(realtime.StreamNDAs, recipientID, eventType, payload)
	s.broadcast(realtime.StreamNotifications, recipientID, "notification.created", dto)
	return nil
}

// ListForUser returns notifications for the supplied user ordered by recency.
func (s *NotificationService) ListForUser(ctx context.Context, userID string, limit int) ([]NotificationDTO, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("notification service: user id is required")
	}
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	var rows []models.Notification
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notification service: list notifications: %w", err)
	}

	items := make([]NotificationDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapNotification(row))
	}
	return items, nil
}

// MarkRead sets the notification read flag for a user.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Updates(map[string]any{"is_read": true, "read_at": now})
	if result.Error != nil {
		return fmt.Errorf("notification service: mark read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// DeleteOlderThan removes notifications created before cutoff and returns how many went.
func (s *NotificationService) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("notification service: cleanup notifications: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *NotificationService) broadcast(stream, userID, event string, data any) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(stream, userID, realtime.Message{Event: event, Data: data})
}

func actionURL(payload map[string]any) string {
	if id, ok := payload["nda_id"].(string); ok && id != "" {
		return "/ndas/" + id
	}
	if id, ok := payload["protected_item_id"].(string); ok && id != "" {
		return "/pitches/" + id
	}
	return ""
}

func mapNotification(row models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        row.ID,
		UserID:    row.UserID,
		Type:      row.Type,
		Title:     row.Title,
		Message:   row.Message,
		Severity:  defaultIfEmpty(row.Severity, "info"),
		ActionURL: row.ActionURL,
		Metadata:  decodeJSON(row.Metadata),
		IsRead:    row.IsRead,
		CreatedAt: row.CreatedAt,
		ReadAt:    row.ReadAt,
	}
}
