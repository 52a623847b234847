package service

import (
	"context"
	"sync"

	"geauxclean/internal/domain"
	"geauxclean/internal/models"

	"github.com/rs/zerolog"
)

// SchedulePanel backs the admin dashboard's schedule/leads view: all
// bookings still occupying the schedule, revenue over them, and a bookings
// feed subscription that triggers a re-fetch. The raw feed payload lacks
// the joined service data, so re-fetching is cheaper than patching.
type SchedulePanel struct {
	store  domain.Store
	feed   domain.ChangeFeed
	logger *zerolog.Logger

	mu       sync.Mutex
	bookings []models.Booking
	unsub    func()
	started  bool
}

func NewSchedulePanel(store domain.Store, feed domain.ChangeFeed, logger *zerolog.Logger) *SchedulePanel {
	return &SchedulePanel{store: store, feed: feed, logger: logger}
}

// Start loads active bookings and subscribes to the bookings table.
// Repeat Start on a running panel is a no-op; the live subscription is
// kept, never replaced.
func (p *SchedulePanel) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = true
	p.mu.Unlock()

	unsub, err := p.feed.Subscribe(ctx, models.TableBookings, func(domain.ChangeEvent) {
		if err := p.reload(ctx); err != nil {
			p.logger.Warn().Err(err).Msg("schedule reload after feed event failed")
		}
	})
	if err != nil {
		p.mu.Lock()
		p.started = false
		p.mu.Unlock()
		return err
	}

	if err := p.reload(ctx); err != nil {
		unsub()
		p.mu.Lock()
		p.started = false
		p.mu.Unlock()
		return err
	}

	p.mu.Lock()
	p.unsub = unsub
	p.mu.Unlock()
	return nil
}

// Stop closes the bookings subscription.
func (p *SchedulePanel) Stop() {
	p.mu.Lock()
	unsub := p.unsub
	p.unsub = nil
	p.started = false
	p.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (p *SchedulePanel) reload(ctx context.Context) error {
	var bookings []models.Booking
	filters := []domain.Filter{domain.In("status",
		models.StatusPending, models.StatusConfirmed, models.StatusEnRoute, models.StatusInProgress)}
	order := &domain.Order{Column: "scheduled_at"}
	if err := p.store.Select(ctx, models.TableBookings, filters, order, &bookings); err != nil {
		return err
	}

	p.mu.Lock()
	p.bookings = bookings
	p.mu.Unlock()
	return nil
}

// Bookings returns the active set ordered by scheduled time.
func (p *SchedulePanel) Bookings() []models.Booking {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Booking(nil), p.bookings...)
}

// Leads returns the pending subset, the dashboard's incoming quote
// requests.
func (p *SchedulePanel) Leads() []models.Booking {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.Booking
	for _, b := range p.bookings {
		if b.Status == models.StatusPending {
			out = append(out, b)
		}
	}
	return out
}

// Revenue sums the active bookings' prices.
func (p *SchedulePanel) Revenue() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	var total float64
	for _, b := range p.bookings {
		total += b.TotalPrice
	}
	return total
}

// UpdateBookingStatus is the admin-side transition (confirm, dispatch,
// complete). The feed event from the write triggers the reload.
func (p *SchedulePanel) UpdateBookingStatus(ctx context.Context, id, status string) (*models.Booking, error) {
	var updated models.Booking
	err := p.store.Update(ctx, models.TableBookings, id, map[string]any{"status": status}, &updated)
	if err != nil {
		p.logger.Error().Err(err).Str("booking_id", id).Str("status", status).Msg("booking status write failed")
		return nil, err
	}
	return &updated, nil
}
