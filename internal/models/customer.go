package models

import "time"

// Review of a completed booking. One per booking.
type Review struct {
	ID         string    `json:"id"`
	BookingID  string    `json:"booking_id"`
	CustomerID string    `json:"customer_id"`
	CleanerID  string    `json:"cleaner_id,omitempty"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

// SupportTicket filed from the customer dashboard.
type SupportTicket struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	Subject    string    `json:"subject"`
	Message    string    `json:"message"`
	Status     string    `json:"status"`
	Priority   string    `json:"priority"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

// PaymentMethod is stored for display only; charging is out of scope.
type PaymentMethod struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Brand     string    `json:"brand"`
	Last4     string    `json:"last4"`
	ExpMonth  int       `json:"exp_month"`
	ExpYear   int       `json:"exp_year"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// UserCredit is one credit line in the wallet.
type UserCredit struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Amount      float64    `json:"amount"`
	Source      string     `json:"source"`
	Description string     `json:"description,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at,omitempty"`
}

// Expired reports whether the credit can no longer be applied.
func (c *UserCredit) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

// PromoCode as stored in the promo_codes table.
type PromoCode struct {
	ID            string     `json:"id"`
	Code          string     `json:"code"`
	DiscountType  string     `json:"discount_type"` // fixed or percentage
	DiscountValue float64    `json:"discount_value"`
	IsActive      bool       `json:"is_active"`
	MaxUses       int        `json:"max_uses,omitempty"`
	CurrentUses   int        `json:"current_uses"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// Referral links a referrer to an invited email. The first row for a user
// carries the code and no referred email.
type Referral struct {
	ID            string    `json:"id"`
	ReferrerID    string    `json:"referrer_id"`
	ReferralCode  string    `json:"referral_code"`
	ReferredEmail string    `json:"referred_email,omitempty"`
	Status        string    `json:"status"`
	RewardAmount  float64   `json:"reward_amount,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
}
