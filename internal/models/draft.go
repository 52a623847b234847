package models

import (
	"fmt"
	"strings"
	"time"
)

// BookingDraft is the transient wizard form. It is never written to the
// bookings table; it lives in the draft repository for the lifetime of one
// wizard and is discarded on close or after a successful submit.
type BookingDraft struct {
	FlowID              string    `json:"flow_id"`
	Step                int       `json:"step"`
	ServiceID           string    `json:"service_id,omitempty"`
	CustomerName        string    `json:"customer_name"`
	CustomerEmail       string    `json:"customer_email"`
	CustomerPhone       string    `json:"customer_phone"`
	Address             string    `json:"address"`
	ScheduledDate       string    `json:"scheduled_date"` // YYYY-MM-DD
	ScheduledTime       string    `json:"scheduled_time"` // HH:MM
	SpecialInstructions string    `json:"special_instructions,omitempty"`
	Password            string    `json:"password,omitempty"`
	EmailLocked         bool      `json:"email_locked"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// StepComplete reports whether the given step's required fields are filled.
// hasSession drops the password requirement on the details step; minPassword
// is the shortest password accepted for a new account.
func (d *BookingDraft) StepComplete(step int, hasSession bool, minPassword int) bool {
	switch step {
	case StepSelectService:
		return d.ServiceID != ""
	case StepDetails:
		if strings.TrimSpace(d.CustomerName) == "" ||
			strings.TrimSpace(d.CustomerEmail) == "" ||
			strings.TrimSpace(d.CustomerPhone) == "" ||
			strings.TrimSpace(d.Address) == "" ||
			d.ScheduledDate == "" || d.ScheduledTime == "" {
			return false
		}
		if !hasSession && len(d.Password) < minPassword {
			return false
		}
		return true
	case StepReview:
		return d.StepComplete(StepSelectService, hasSession, minPassword) &&
			d.StepComplete(StepDetails, hasSession, minPassword)
	}
	return false
}

// ScheduledAt combines the date and time fields into one instant in the
// given location.
func (d *BookingDraft) ScheduledAt(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", d.ScheduledDate+" "+d.ScheduledTime, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date/time %q %q: %w", d.ScheduledDate, d.ScheduledTime, err)
	}
	return t, nil
}
