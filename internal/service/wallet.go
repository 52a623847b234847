package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"geauxclean/internal/domain"
	"geauxclean/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// WalletService serves the customer's payment methods and credit balance
// and redeems promo codes. Cards are display-only; charging is stubbed.
type WalletService struct {
	store    domain.Store
	sessions *SessionService
	limiter  *rate.Limiter
	logger   *zerolog.Logger
}

func NewWalletService(store domain.Store, sessions *SessionService, limiter *rate.Limiter, logger *zerolog.Logger) *WalletService {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Limit(float64(models.RateLimitAttempts)/float64(models.RateLimitWindow)), models.RateLimitAttempts)
	}
	return &WalletService{store: store, sessions: sessions, limiter: limiter, logger: logger}
}

// GetPaymentMethods returns stored cards, default first.
func (s *WalletService) GetPaymentMethods(ctx context.Context) ([]models.PaymentMethod, error) {
	session := s.sessions.Session()
	if session == nil {
		return nil, nil
	}

	var methods []models.PaymentMethod
	filters := []domain.Filter{domain.Eq("user_id", session.UserID)}
	order := &domain.Order{Column: "is_default", Descending: true}
	if err := s.store.Select(ctx, models.TablePaymentMethods, filters, order, &methods); err != nil {
		return nil, err
	}
	return methods, nil
}

// GetCredits returns credit lines newest first.
func (s *WalletService) GetCredits(ctx context.Context) ([]models.UserCredit, error) {
	session := s.sessions.Session()
	if session == nil {
		return nil, nil
	}

	var credits []models.UserCredit
	filters := []domain.Filter{domain.Eq("user_id", session.UserID)}
	order := &domain.Order{Column: "created_at", Descending: true}
	if err := s.store.Select(ctx, models.TableUserCredits, filters, order, &credits); err != nil {
		return nil, err
	}
	return credits, nil
}

// AvailableCredit sums unexpired credit lines.
func (s *WalletService) AvailableCredit(ctx context.Context) (float64, error) {
	credits, err := s.GetCredits(ctx)
	if err != nil {
		return 0, err
	}
	now := time.Now()
	var total float64
	for _, c := range credits {
		if !c.Expired(now) {
			total += c.Amount
		}
	}
	return total, nil
}

// RedeemPromo validates a code and credits the account: active lookup,
// expiry check, max-uses check, credit insert, usage increment. The
// increment racing another redeemer is accepted; the store's last write
// wins and codes are not money-critical.
func (s *WalletService) RedeemPromo(ctx context.Context, code string) (float64, error) {
	session := s.sessions.Session()
	if session == nil {
		return 0, ErrAuthRequired
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return 0, ErrInvalidPromo
	}
	if !s.limiter.Allow() {
		return 0, ErrTooManyAttempts
	}

	var promos []models.PromoCode
	filters := []domain.Filter{domain.Eq("code", code), domain.Eq("is_active", true)}
	if err := s.store.Select(ctx, models.TablePromoCodes, filters, nil, &promos); err != nil {
		return 0, err
	}
	if len(promos) == 0 {
		return 0, ErrInvalidPromo
	}
	promo := promos[0]

	if promo.ExpiresAt != nil && promo.ExpiresAt.Before(time.Now()) {
		return 0, ErrPromoExpired
	}
	if promo.MaxUses > 0 && promo.CurrentUses >= promo.MaxUses {
		return 0, ErrPromoExhausted
	}

	// Percentage codes are applied at booking time; fixed codes credit the
	// wallet directly. Both record the discount value as the credit amount.
	credit := models.UserCredit{
		UserID:      session.UserID,
		Amount:      promo.DiscountValue,
		Source:      models.CreditSourcePromo,
		Description: fmt.Sprintf("Promo code: %s", code),
	}
	if err := s.store.Insert(ctx, models.TableUserCredits, credit, nil); err != nil {
		s.logger.Error().Err(err).Str("code", code).Msg("promo credit insert failed")
		return 0, err
	}

	if err := s.store.Update(ctx, models.TablePromoCodes, promo.ID,
		map[string]any{"current_uses": promo.CurrentUses + 1}, nil); err != nil {
		s.logger.Warn().Err(err).Str("code", code).Msg("promo usage increment failed")
	}

	return promo.DiscountValue, nil
}
