package domain

import (
	"context"
	"encoding/json"
	"time"

	"geauxclean/internal/models"
)

// Filter is one column predicate for a Select.
type Filter struct {
	Column string
	Op     string // eq, neq, in, gte, lte
	Value  any
}

// Eq builds the common equality filter.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: "eq", Value: value}
}

// In builds a membership filter.
func In(column string, values ...any) Filter {
	return Filter{Column: column, Op: "in", Value: values}
}

// Order names the sort column for a Select.
type Order struct {
	Column     string
	Descending bool
}

// Store is the generic record store the backend exposes per table.
// Insert and Update return the authoritative server row via dest.
type Store interface {
	Select(ctx context.Context, table string, filters []Filter, order *Order, dest any) error
	Insert(ctx context.Context, table string, row any, dest any) error
	Update(ctx context.Context, table string, id string, patch map[string]any, dest any) error
	Delete(ctx context.Context, table string, id string) error
}

// Change feed event types.
const (
	ChangeInsert = "insert"
	ChangeUpdate = "update"
	ChangeDelete = "delete"
)

// ChangeEvent is one row-level event from the realtime feed.
type ChangeEvent struct {
	Type  string          `json:"type"`
	Table string          `json:"table"`
	New   json.RawMessage `json:"new,omitempty"`
	Old   json.RawMessage `json:"old,omitempty"`
}

// ChangeFeed delivers row-level events for a table in delivery order.
// The returned func closes the subscription.
type ChangeFeed interface {
	Subscribe(ctx context.Context, table string, handler func(event ChangeEvent)) (func(), error)
}

// FeedPublisher is the write side of a change feed. The local backend and
// tests publish through it; the hosted backend publishes server-side.
type FeedPublisher interface {
	Publish(ctx context.Context, event ChangeEvent) error
}

// AuthClient is the identity provider. Session-less states return a nil
// session, not an error.
type AuthClient interface {
	SignUp(ctx context.Context, email, password string, metadata map[string]string) (*models.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)
	GetSession(ctx context.Context) (*models.Session, error)
	SignOut(ctx context.Context) error
}

// DraftRepository keeps wizard drafts keyed by flow id.
type DraftRepository interface {
	GetDraft(ctx context.Context, flowID string) (*models.BookingDraft, error)
	SetDraft(ctx context.Context, draft *models.BookingDraft) error
	ClearDraft(ctx context.Context, flowID string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// EventPublisher is the in-process event bus write side.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Notifier surfaces transient user-facing notices (toasts). Delivery is
// best-effort.
type Notifier interface {
	Notify(kind string, message string)
}

// Notice kinds.
const (
	NoticeInfo    = "info"
	NoticeSuccess = "success"
	NoticeError   = "error"
)
