package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"geauxclean/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockDraftRepo struct {
	mock.Mock
}

func (m *mockDraftRepo) GetDraft(ctx context.Context, flowID string) (*models.BookingDraft, error) {
	args := m.Called(ctx, flowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookingDraft), args.Error(1)
}

func (m *mockDraftRepo) SetDraft(ctx context.Context, draft *models.BookingDraft) error {
	args := m.Called(ctx, draft)
	return args.Error(0)
}

func (m *mockDraftRepo) ClearDraft(ctx context.Context, flowID string) error {
	args := m.Called(ctx, flowID)
	return args.Error(0)
}

func (m *mockDraftRepo) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func TestFailoverDraftRepository(t *testing.T) {
	primary := new(mockDraftRepo)
	fallback := new(mockDraftRepo)
	logger := zerolog.New(io.Discard)
	repo := NewFailoverDraftRepository(primary, fallback, &logger)
	ctx := context.Background()

	t.Run("PrimarySuccess", func(t *testing.T) {
		draft := &models.BookingDraft{FlowID: "f1"}
		primary.On("GetDraft", ctx, "f1").Return(draft, nil).Once()

		got, err := repo.GetDraft(ctx, "f1")
		assert.NoError(t, err)
		assert.Equal(t, draft, got)
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryFailFallbackSuccess", func(t *testing.T) {
		draft := &models.BookingDraft{FlowID: "f2"}
		primary.On("GetDraft", ctx, "f2").Return(nil, errors.New("fail")).Once()
		fallback.On("GetDraft", ctx, "f2").Return(draft, nil).Once()

		got, err := repo.GetDraft(ctx, "f2")
		assert.NoError(t, err)
		assert.Equal(t, draft, got)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("RecoveryAttempt", func(t *testing.T) {
		repo.isDown.Store(true)
		repo.lastCheck = time.Now().Add(-2 * time.Minute)

		draft := &models.BookingDraft{FlowID: "f3"}
		primary.On("GetDraft", ctx, "f3").Return(draft, nil).Once()

		got, err := repo.GetDraft(ctx, "f3")
		assert.NoError(t, err)
		assert.Equal(t, draft, got)
		assert.False(t, repo.isDown.Load())
		primary.AssertExpectations(t)
	})

	t.Run("RecoveryAttemptFail", func(t *testing.T) {
		repo.isDown.Store(true)
		repo.lastCheck = time.Now().Add(-2 * time.Minute)

		primary.On("GetDraft", ctx, "f33").Return(nil, errors.New("still fail")).Once()
		fallback.On("GetDraft", ctx, "f33").Return(nil, nil).Once()

		_, err := repo.GetDraft(ctx, "f33")
		assert.NoError(t, err)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("SetDraftSuccess", func(t *testing.T) {
		repo.isDown.Store(false)
		draft := &models.BookingDraft{FlowID: "f77"}
		primary.On("SetDraft", ctx, draft).Return(nil).Once()

		err := repo.SetDraft(ctx, draft)
		assert.NoError(t, err)
		primary.AssertExpectations(t)
	})

	t.Run("ClearDraftClearsBothSides", func(t *testing.T) {
		repo.isDown.Store(false)
		primary.On("ClearDraft", ctx, "f88").Return(nil).Once()
		fallback.On("ClearDraft", ctx, "f88").Return(nil).Once()

		err := repo.ClearDraft(ctx, "f88")
		assert.NoError(t, err)
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("SetDraftFailover", func(t *testing.T) {
		repo.isDown.Store(false)
		draft := &models.BookingDraft{FlowID: "f4"}
		primary.On("SetDraft", ctx, draft).Return(errors.New("fail")).Once()
		fallback.On("SetDraft", ctx, draft).Return(nil).Once()

		err := repo.SetDraft(ctx, draft)
		assert.NoError(t, err)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("CheckRateLimitFailover", func(t *testing.T) {
		repo.isDown.Store(false)
		primary.On("CheckRateLimit", ctx, "k6", 10, time.Minute).Return(false, errors.New("fail")).Once()
		fallback.On("CheckRateLimit", ctx, "k6", 10, time.Minute).Return(true, nil).Once()

		allowed, err := repo.CheckRateLimit(ctx, "k6", 10, time.Minute)
		assert.NoError(t, err)
		assert.True(t, allowed)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("AlreadyDownUsesFallbackOnly", func(t *testing.T) {
		repo.isDown.Store(true)
		repo.lastCheck = time.Now()
		draft := &models.BookingDraft{FlowID: "f44"}
		fallback.On("SetDraft", ctx, draft).Return(nil).Once()
		fallback.On("ClearDraft", ctx, "f55").Return(nil).Once()
		fallback.On("CheckRateLimit", ctx, "k66", 10, time.Minute).Return(true, nil).Once()

		assert.NoError(t, repo.SetDraft(ctx, draft))
		assert.NoError(t, repo.ClearDraft(ctx, "f55"))
		allowed, err := repo.CheckRateLimit(ctx, "k66", 10, time.Minute)
		assert.NoError(t, err)
		assert.True(t, allowed)
		fallback.AssertExpectations(t)
	})
}
