package service

import (
	"context"
	"strings"

	"geauxclean/internal/domain"
	"geauxclean/internal/models"

	"github.com/rs/zerolog"
)

// SupportService lists and files the customer's support tickets.
type SupportService struct {
	store    domain.Store
	sessions *SessionService
	logger   *zerolog.Logger
}

func NewSupportService(store domain.Store, sessions *SessionService, logger *zerolog.Logger) *SupportService {
	return &SupportService{store: store, sessions: sessions, logger: logger}
}

// GetTickets returns the customer's tickets, newest first.
func (s *SupportService) GetTickets(ctx context.Context) ([]models.SupportTicket, error) {
	session := s.sessions.Session()
	if session == nil {
		return nil, nil
	}

	var tickets []models.SupportTicket
	filters := []domain.Filter{domain.Eq("customer_id", session.UserID)}
	order := &domain.Order{Column: "created_at", Descending: true}
	if err := s.store.Select(ctx, models.TableSupportTickets, filters, order, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// CreateTicket files a new ticket with status open and normal priority.
func (s *SupportService) CreateTicket(ctx context.Context, subject, message string) (*models.SupportTicket, error) {
	session := s.sessions.Session()
	if session == nil {
		return nil, ErrAuthRequired
	}
	subject = strings.TrimSpace(subject)
	message = strings.TrimSpace(message)
	if subject == "" || message == "" {
		return nil, ErrIncompleteStep
	}

	ticket := models.SupportTicket{
		CustomerID: session.UserID,
		Subject:    subject,
		Message:    message,
		Status:     models.TicketOpen,
		Priority:   models.TicketPriorityNormal,
	}
	var created models.SupportTicket
	if err := s.store.Insert(ctx, models.TableSupportTickets, ticket, &created); err != nil {
		s.logger.Error().Err(err).Msg("support ticket insert failed")
		return nil, err
	}
	return &created, nil
}
