package models

import "time"

// Service is a catalog entry. Read-only for this client.
type Service struct {
	ID              string  `yaml:"id" json:"id"`
	Name            string  `yaml:"name" json:"name"`
	Description     string  `yaml:"description" json:"description"`
	BasePrice       float64 `yaml:"base_price" json:"base_price"`
	DurationMinutes int64   `yaml:"duration_minutes" json:"duration_minutes"`
	ImageURL        string  `yaml:"image_url" json:"image_url"`
}

// Booking is the persisted record. Status starts at pending and is only
// moved forward by admin tooling, never by the customer client.
type Booking struct {
	ID                  string    `json:"id"`
	CustomerID          string    `json:"customer_id,omitempty"`
	CleanerID           string    `json:"cleaner_id,omitempty"`
	ServiceID           string    `json:"service_id"`
	Status              string    `json:"status"`
	ScheduledAt         time.Time `json:"scheduled_at"`
	TotalPrice          float64   `json:"total_price"`
	Address             string    `json:"address"`
	CustomerName        string    `json:"customer_name,omitempty"`
	CustomerEmail       string    `json:"customer_email,omitempty"`
	CustomerPhone       string    `json:"customer_phone,omitempty"`
	SpecialInstructions string    `json:"special_instructions,omitempty"`
	CreatedAt           time.Time `json:"created_at,omitempty"`
	UpdatedAt           time.Time `json:"updated_at,omitempty"`
}

// IsActive reports whether the booking still occupies the schedule.
func (b *Booking) IsActive() bool {
	switch b.Status {
	case StatusPending, StatusConfirmed, StatusEnRoute, StatusInProgress:
		return true
	}
	return false
}

// User is a row of the users table, provisioned by the identity provider.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Session is the identity provider's session plus the user identity it was
// issued for. Role is NOT part of the session; it is a side lookup cached by
// the session service.
type Session struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	AccessToken string    `json:"access_token,omitempty"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

// AdminTask is one card on the admin task board. Any admin session may
// mutate any task; convergence comes from the change feed alone.
type AdminTask struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Priority  string    `json:"priority"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// ValidPriority reports whether p is one of the three known priorities.
func ValidPriority(p string) bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// ValidTaskStatus reports whether s names a board column.
func ValidTaskStatus(s string) bool {
	return s == TaskTodo || s == TaskInProgress || s == TaskDone
}
