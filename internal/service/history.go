package service

import (
	"context"
	"strings"

	"geauxclean/internal/domain"
	"geauxclean/internal/models"

	"github.com/rs/zerolog"
)

// HistoryService serves the customer's booking history and reviews.
type HistoryService struct {
	store    domain.Store
	sessions *SessionService
	logger   *zerolog.Logger
}

func NewHistoryService(store domain.Store, sessions *SessionService, logger *zerolog.Logger) *HistoryService {
	return &HistoryService{store: store, sessions: sessions, logger: logger}
}

// GetBookings returns the customer's bookings, newest scheduled first.
// filter is "" for all, or a terminal status (completed/cancelled).
func (s *HistoryService) GetBookings(ctx context.Context, filter string) ([]models.Booking, error) {
	session := s.sessions.Session()
	if session == nil {
		return nil, nil
	}

	filters := []domain.Filter{domain.Eq("customer_id", session.UserID)}
	if filter != "" {
		filters = append(filters, domain.Eq("status", filter))
	}
	order := &domain.Order{Column: "scheduled_at", Descending: true}

	var bookings []models.Booking
	if err := s.store.Select(ctx, models.TableBookings, filters, order, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// GetReviews returns the customer's reviews keyed by booking id.
func (s *HistoryService) GetReviews(ctx context.Context) (map[string]models.Review, error) {
	session := s.sessions.Session()
	if session == nil {
		return nil, nil
	}

	var reviews []models.Review
	filters := []domain.Filter{domain.Eq("customer_id", session.UserID)}
	if err := s.store.Select(ctx, models.TableReviews, filters, nil, &reviews); err != nil {
		return nil, err
	}

	byBooking := make(map[string]models.Review, len(reviews))
	for _, r := range reviews {
		byBooking[r.BookingID] = r
	}
	return byBooking, nil
}

// SubmitReview files one review for a booking. Rating is 1..5.
func (s *HistoryService) SubmitReview(ctx context.Context, booking models.Booking, rating int, comment string) (*models.Review, error) {
	session := s.sessions.Session()
	if session == nil {
		return nil, ErrAuthRequired
	}
	if rating < 1 || rating > 5 {
		return nil, ErrIncompleteStep
	}

	existing, err := s.GetReviews(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := existing[booking.ID]; ok {
		return nil, ErrAlreadyReviewed
	}

	review := models.Review{
		BookingID:  booking.ID,
		CustomerID: session.UserID,
		CleanerID:  booking.CleanerID,
		Rating:     rating,
		Comment:    strings.TrimSpace(comment),
	}
	var created models.Review
	if err := s.store.Insert(ctx, models.TableReviews, review, &created); err != nil {
		s.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("review insert failed")
		return nil, err
	}
	return &created, nil
}
