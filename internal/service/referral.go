package service

import (
	"context"
	"strings"

	"geauxclean/internal/domain"
	"geauxclean/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ReferralService manages the customer's referral code and conversions.
type ReferralService struct {
	store    domain.Store
	sessions *SessionService
	logger   *zerolog.Logger
}

func NewReferralService(store domain.Store, sessions *SessionService, logger *zerolog.Logger) *ReferralService {
	return &ReferralService{store: store, sessions: sessions, logger: logger}
}

// EnsureCode returns the user's referral code, creating the initial
// referral row on first visit.
func (s *ReferralService) EnsureCode(ctx context.Context) (string, error) {
	session := s.sessions.Session()
	if session == nil {
		return "", ErrAuthRequired
	}

	var existing []models.Referral
	filters := []domain.Filter{domain.Eq("referrer_id", session.UserID)}
	if err := s.store.Select(ctx, models.TableReferrals, filters, nil, &existing); err != nil {
		return "", err
	}
	if len(existing) > 0 {
		return existing[0].ReferralCode, nil
	}

	code := generateReferralCode()
	referral := models.Referral{
		ReferrerID:   session.UserID,
		ReferralCode: code,
		Status:       models.ReferralPending,
	}
	if err := s.store.Insert(ctx, models.TableReferrals, referral, nil); err != nil {
		return "", err
	}
	return code, nil
}

// GetReferrals lists conversions: rows that name a referred email, newest
// first. The code-holder row itself has no referred email and is skipped.
func (s *ReferralService) GetReferrals(ctx context.Context) ([]models.Referral, error) {
	session := s.sessions.Session()
	if session == nil {
		return nil, nil
	}

	var referrals []models.Referral
	filters := []domain.Filter{domain.Eq("referrer_id", session.UserID)}
	order := &domain.Order{Column: "created_at", Descending: true}
	if err := s.store.Select(ctx, models.TableReferrals, filters, order, &referrals); err != nil {
		return nil, err
	}

	out := referrals[:0]
	for _, r := range referrals {
		if r.ReferredEmail != "" {
			out = append(out, r)
		}
	}
	return out, nil
}

// TotalEarned sums rewards over converted referrals.
func (s *ReferralService) TotalEarned(ctx context.Context) (float64, error) {
	referrals, err := s.GetReferrals(ctx)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, r := range referrals {
		if r.Status == models.ReferralRewardGiven {
			reward := r.RewardAmount
			if reward == 0 {
				reward = models.DefaultReferralReward
			}
			total += reward
		}
	}
	return total, nil
}

func generateReferralCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "GEAUX-" + strings.ToUpper(raw[:6])
}
