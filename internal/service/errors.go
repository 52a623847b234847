package service

import "errors"

var (
	// ErrUnknownService means the selected service id is not in the catalog.
	ErrUnknownService = errors.New("unknown service")

	// ErrIncompleteStep blocks Continue/Submit while required fields for the
	// current session state are empty.
	ErrIncompleteStep = errors.New("required fields are missing")

	// ErrExistingAccountBadPassword is the specific merge failure: the email
	// is registered but the supplied password does not match. Deliberately
	// distinct from a generic auth failure so the user knows to use their
	// existing password rather than retry signup.
	ErrExistingAccountBadPassword = errors.New("an account with this email already exists, but the password provided was incorrect")

	// ErrAuthRequired means no user id could be resolved at submit time.
	ErrAuthRequired = errors.New("could not establish an account for this booking")

	// ErrSubmitInFlight guards against double-triggering a submission.
	ErrSubmitInFlight = errors.New("submission already in progress")

	// ErrWizardClosed is returned by operations on a closed wizard.
	ErrWizardClosed = errors.New("booking wizard is closed")

	// ErrPastDate rejects schedules before today.
	ErrPastDate = errors.New("scheduled date must be today or later")

	// ErrEmailLocked rejects email edits while a session pre-fills it.
	ErrEmailLocked = errors.New("email is taken from the signed-in account")

	// ErrTooManyAttempts is the rate limiter refusing another auth attempt.
	ErrTooManyAttempts = errors.New("too many attempts, try again shortly")

	// ErrNotConfirmed means the user declined the delete confirmation.
	ErrNotConfirmed = errors.New("not confirmed")

	// ErrNoDraggedTask means Drop was called without a preceding DragStart.
	ErrNoDraggedTask = errors.New("no task is being dragged")

	// ErrTaskNotFound means the id is not on the local board.
	ErrTaskNotFound = errors.New("task not found")

	// ErrAlreadyReviewed enforces one review per booking.
	ErrAlreadyReviewed = errors.New("this booking already has a review")

	// ErrInvalidPromo covers unknown, inactive, expired and exhausted codes.
	ErrInvalidPromo = errors.New("invalid promo code")

	// ErrPromoExpired is an expired but otherwise valid code.
	ErrPromoExpired = errors.New("this promo code has expired")

	// ErrPromoExhausted is a code at its use limit.
	ErrPromoExhausted = errors.New("this promo code has reached its limit")
)
