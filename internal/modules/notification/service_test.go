package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rentals/internal/domain"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Create(ctx context.Context, n *domain.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *mockRepo) GetByUserID(ctx context.Context, userID int64, limit int) ([]domain.Notification, error) {
	args := m.Called(ctx, userID, limit)
	list, _ := args.Get(0).([]domain.Notification)
	return list, args.Error(1)
}

func (m *mockRepo) CountUnread(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepo) MarkAsRead(ctx context.Context, id, userID int64) error {
	return m.Called(ctx, id, userID).Error(0)
}

func (m *mockRepo) MarkAllAsRead(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

type recordingPusher struct {
	sent map[int64][]interface{}
}

func (p *recordingPusher) SendToUser(userID int64, message interface{}) int {
	if p.sent == nil {
		p.sent = map[int64][]interface{}{}
	}
	p.sent[userID] = append(p.sent[userID], message)
	return 1
}

func TestService_CreateStoresThenPushes(t *testing.T) {
	repo := new(mockRepo)
	push := &recordingPusher{}
	svc := NewService(repo, push, nil)

	repo.On("Create", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.UserID == 7 && n.Type == domain.NotifPaymentConfirmed && n.Data["booking_id"] == int64(42)
	})).Return(nil).Once()

	err := svc.Create(context.Background(), 7, domain.NotifPaymentConfirmed, "Payment received", "ok",
		map[string]any{"booking_id": int64(42)})
	require.NoError(t, err)

	repo.AssertExpectations(t)
	require.Len(t, push.sent[7], 1)
	msg, ok := push.sent[7][0].(PushMessage)
	require.True(t, ok)
	assert.Equal(t, "notification", msg.Type)
	assert.Equal(t, "Payment received", msg.Notification.Title)
}

func TestService_CreateFailureSkipsPush(t *testing.T) {
	repo := new(mockRepo)
	push := &recordingPusher{}
	svc := NewService(repo, push, nil)

	boom := errors.New("db down")
	repo.On("Create", mock.Anything, mock.Anything).Return(boom)

	err := svc.Create(context.Background(), 7, domain.NotifPaymentFailed, "t", "m", nil)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, push.sent)
}

func TestService_GetUserNotifications(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo, nil, nil)

	repo.On("GetByUserID", mock.Anything, int64(3), 20).Return([]domain.Notification{{ID: 1}, {ID: 2}}, nil)
	repo.On("CountUnread", mock.Anything, int64(3)).Return(int64(1), nil)

	list, unread, err := svc.GetUserNotifications(context.Background(), 3, 20)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, int64(1), unread)
}
