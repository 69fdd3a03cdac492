package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"rentals/internal/domain"
)

type notificationStore interface {
	Create(ctx context.Context, n *domain.Notification) error
	GetByUserID(ctx context.Context, userID int64, limit int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	MarkAsRead(ctx context.Context, id, userID int64) error
	MarkAllAsRead(ctx context.Context, userID int64) error
}

// PushMessage is the frame written to notification sockets.
type PushMessage struct {
	Type         string               `json:"type"`
	Notification *domain.Notification `json:"notification"`
}

// pusher delivers to live connections; Hub implements it.
type pusher interface {
	SendToUser(userID int64, message interface{}) int
}

type Service struct {
	repo notificationStore
	push pusher
	log  *zap.Logger
}

func NewService(repo notificationStore, push pusher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, push: push, log: log}
}

// Create stores the notification and pushes it to the user's open sockets.
// Only the insert can fail; delivery is best effort.
func (s *Service) Create(ctx context.Context, userID int64, typ domain.NotificationType, title, message string, data map[string]any) error {
	n := &domain.Notification{
		UserID:  userID,
		Type:    typ,
		Title:   title,
		Message: message,
		Data:    data,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	if s.push != nil {
		delivered := s.push.SendToUser(userID, PushMessage{Type: "notification", Notification: n})
		s.log.Debug("notification stored",
			zap.Int64("user_id", userID),
			zap.String("type", string(typ)),
			zap.Int("live_deliveries", delivered))
	}
	return nil
}

func (s *Service) GetUserNotifications(ctx context.Context, userID int64, limit int) ([]domain.Notification, int64, error) {
	list, err := s.repo.GetByUserID(ctx, userID, limit)
	if err != nil {
		return nil, 0, err
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return list, unread, nil
}

func (s *Service) MarkAsRead(ctx context.Context, id, userID int64) error {
	return s.repo.MarkAsRead(ctx, id, userID)
}

func (s *Service) MarkAllAsRead(ctx context.Context, userID int64) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}
