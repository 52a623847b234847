package models

// Booking statuses. The client only ever writes StatusPending; every later
// transition comes from dispatch or admin tooling.
const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusEnRoute    = "en_route"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Task board columns.
const (
	TaskTodo       = "todo"
	TaskInProgress = "in_progress"
	TaskDone       = "done"
)

// Task priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// User roles as stored in the users table.
const (
	RoleCustomer = "customer"
	RoleCleaner  = "cleaner"
	RoleAdmin    = "admin"
)

// Booking wizard steps.
const (
	StepSelectService = 1
	StepDetails       = 2
	StepReview        = 3
)

// Support ticket fields.
const (
	TicketOpen       = "open"
	TicketInProgress = "in_progress"
	TicketResolved   = "resolved"

	TicketPriorityNormal = "normal"
)

// Referral statuses.
const (
	ReferralPending     = "pending"
	ReferralSignedUp    = "signed_up"
	ReferralRewardGiven = "reward_given"
)

// Credit sources.
const (
	CreditSourcePromo    = "promo"
	CreditSourceReferral = "referral"
	CreditSourceRefund   = "refund"
)

const (
	// MinPasswordLength applies to accounts created from the wizard.
	MinPasswordLength = 6

	// DefaultReferralReward is credited when a referral converts.
	DefaultReferralReward = 25

	// DefaultDraftTTL время жизни черновика заявки в Redis
	DefaultDraftTTL = 24 * 60 * 60 // 24 часа в секундах

	// CatalogCacheTTL время жизни кэша каталога услуг
	CatalogCacheTTL = 30 * 60 // 30 минут в секундах

	// NotifyQueueSize размер очереди уведомлений
	NotifyQueueSize = 1000

	// RateLimitAttempts количество попыток входа в окне
	RateLimitAttempts = 5

	// RateLimitWindow окно ограничения попыток входа
	RateLimitWindow = 60 // 1 минута в секундах
)

// Tables the backend exposes to this client.
const (
	TableServices       = "services"
	TableBookings       = "bookings"
	TableUsers          = "users"
	TableAdminTasks     = "admin_tasks"
	TableReviews        = "reviews"
	TableSupportTickets = "support_tickets"
	TablePaymentMethods = "payment_methods"
	TableUserCredits    = "user_credits"
	TablePromoCodes     = "promo_codes"
	TableReferrals      = "referrals"
)
