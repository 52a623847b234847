package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"geauxclean/internal/domain"
	"geauxclean/internal/events"
	"geauxclean/internal/metrics"
	"geauxclean/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BookingWizard drives the three-step booking flow: select service, enter
// details, review and submit. One wizard per open flow; Close discards the
// draft and cancels any in-flight submit, so a stale write never applies.
type BookingWizard struct {
	catalog  *CatalogService
	identity *IdentityResolver
	store    domain.Store
	drafts   domain.DraftRepository
	sessions *SessionService
	eventBus domain.EventPublisher
	location *time.Location
	minPass  int
	logger   *zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	draft      *models.BookingDraft
	services   []models.Service
	hasSession bool
	submitting bool
	closed     bool

	onSuccess func(models.Booking)
}

func NewBookingWizard(
	catalog *CatalogService,
	identity *IdentityResolver,
	store domain.Store,
	drafts domain.DraftRepository,
	sessions *SessionService,
	eventBus domain.EventPublisher,
	location *time.Location,
	minPasswordLength int,
	logger *zerolog.Logger,
) *BookingWizard {
	if location == nil {
		location = time.Local
	}
	if minPasswordLength < 1 {
		minPasswordLength = models.MinPasswordLength
	}
	return &BookingWizard{
		catalog:  catalog,
		identity: identity,
		store:    store,
		drafts:   drafts,
		sessions: sessions,
		eventBus: eventBus,
		location: location,
		minPass:  minPasswordLength,
		logger:   logger,
	}
}

// OnSuccess sets the callback invoked after a booking is accepted. The
// wizard never decides navigation itself.
func (w *BookingWizard) OnSuccess(fn func(models.Booking)) {
	w.mu.Lock()
	w.onSuccess = fn
	w.mu.Unlock()
}

// Open starts a fresh flow: empty draft, catalog loaded, session checked
// for pre-fill. A session's email is pre-filled and locked; its name is
// pre-filled but editable.
func (w *BookingWizard) Open(ctx context.Context) error {
	services, err := w.catalog.GetServices(ctx)
	if err != nil {
		return err
	}

	session, err := w.sessions.auth.GetSession(ctx)
	if err != nil {
		return err
	}

	draft := &models.BookingDraft{
		FlowID: uuid.NewString(),
		Step:   models.StepSelectService,
	}
	if session != nil {
		draft.CustomerEmail = session.Email
		draft.EmailLocked = true
		w.prefillProfile(ctx, session.UserID, draft)
	}

	wizardCtx, cancel := context.WithCancel(context.Background())

	w.mu.Lock()
	prevCancel := w.cancel
	w.ctx = wizardCtx
	w.cancel = cancel
	w.draft = draft
	w.services = services
	w.hasSession = session != nil
	w.submitting = false
	w.closed = false
	w.mu.Unlock()

	// Reopening ends the previous flow's lifetime along with any submit
	// still tied to it.
	if prevCancel != nil {
		prevCancel()
	}

	return w.saveDraft(ctx)
}

func (w *BookingWizard) prefillProfile(ctx context.Context, userID string, draft *models.BookingDraft) {
	var users []models.User
	err := w.store.Select(ctx, models.TableUsers, []domain.Filter{domain.Eq("id", userID)}, nil, &users)
	if err != nil || len(users) == 0 {
		return
	}
	draft.CustomerName = users[0].FullName
	if users[0].Email != "" {
		draft.CustomerEmail = users[0].Email
	}
}

// Services returns the loaded catalog for rendering step 1.
func (w *BookingWizard) Services() []models.Service {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]models.Service(nil), w.services...)
}

// Step returns the current wizard step.
func (w *BookingWizard) Step() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.draft == nil {
		return 0
	}
	return w.draft.Step
}

// Draft returns a copy of the current draft for rendering. Never share the
// live pointer; field mutation goes through the setters.
func (w *BookingWizard) Draft() models.BookingDraft {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.draft == nil {
		return models.BookingDraft{}
	}
	return *w.draft
}

// SelectService picks the step-1 service.
func (w *BookingWizard) SelectService(ctx context.Context, serviceID string) error {
	w.mu.Lock()
	if err := w.openStateLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	found := false
	for _, svc := range w.services {
		if svc.ID == serviceID {
			found = true
			break
		}
	}
	if !found {
		w.mu.Unlock()
		return ErrUnknownService
	}
	w.draft.ServiceID = serviceID
	w.mu.Unlock()
	return w.saveDraft(ctx)
}

func (w *BookingWizard) SetName(ctx context.Context, name string) error {
	return w.setField(ctx, func(d *models.BookingDraft) error { d.CustomerName = name; return nil })
}

func (w *BookingWizard) SetEmail(ctx context.Context, email string) error {
	return w.setField(ctx, func(d *models.BookingDraft) error {
		if d.EmailLocked {
			return ErrEmailLocked
		}
		d.CustomerEmail = email
		return nil
	})
}

func (w *BookingWizard) SetPhone(ctx context.Context, phone string) error {
	return w.setField(ctx, func(d *models.BookingDraft) error { d.CustomerPhone = phone; return nil })
}

func (w *BookingWizard) SetAddress(ctx context.Context, address string) error {
	return w.setField(ctx, func(d *models.BookingDraft) error { d.Address = address; return nil })
}

func (w *BookingWizard) SetSchedule(ctx context.Context, date, timeOfDay string) error {
	return w.setField(ctx, func(d *models.BookingDraft) error {
		d.ScheduledDate = date
		d.ScheduledTime = timeOfDay
		return nil
	})
}

func (w *BookingWizard) SetInstructions(ctx context.Context, text string) error {
	return w.setField(ctx, func(d *models.BookingDraft) error { d.SpecialInstructions = text; return nil })
}

func (w *BookingWizard) SetPassword(ctx context.Context, password string) error {
	return w.setField(ctx, func(d *models.BookingDraft) error { d.Password = password; return nil })
}

func (w *BookingWizard) setField(ctx context.Context, mutate func(*models.BookingDraft) error) error {
	w.mu.Lock()
	if err := w.openStateLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	if err := mutate(w.draft); err != nil {
		w.mu.Unlock()
		return err
	}
	w.mu.Unlock()
	return w.saveDraft(ctx)
}

// CanContinue reports whether the current step's required fields are
// complete. Rendering uses it to disable the Continue/Submit control, which
// is the validation surface: incomplete input is unclickable, not an error.
func (w *BookingWizard) CanContinue() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.draft == nil || w.closed || w.submitting {
		return false
	}
	return w.draft.StepComplete(w.draft.Step, w.hasSession, w.minPass)
}

// Next advances one step after the gate passes.
func (w *BookingWizard) Next(ctx context.Context) error {
	w.mu.Lock()
	if err := w.openStateLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	if w.draft.Step >= models.StepReview {
		w.mu.Unlock()
		return ErrIncompleteStep
	}
	if !w.draft.StepComplete(w.draft.Step, w.hasSession, w.minPass) {
		w.mu.Unlock()
		return ErrIncompleteStep
	}
	w.draft.Step++
	w.mu.Unlock()
	return w.saveDraft(ctx)
}

// Back returns to the previous step, keeping all entered state.
func (w *BookingWizard) Back(ctx context.Context) error {
	w.mu.Lock()
	if err := w.openStateLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	if w.draft.Step > models.StepSelectService {
		w.draft.Step--
	}
	w.mu.Unlock()
	return w.saveDraft(ctx)
}

// Submit runs the identity resolution and writes the booking. Only valid
// from the review step with every gate satisfied. On failure the wizard
// stays on its step with the draft intact so nothing is retyped.
func (w *BookingWizard) Submit(ctx context.Context) (*models.Booking, error) {
	w.mu.Lock()
	if err := w.openStateLocked(); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	if w.submitting {
		w.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	if w.draft.Step != models.StepReview || !w.draft.StepComplete(models.StepReview, w.hasSession, w.minPass) {
		w.mu.Unlock()
		return nil, ErrIncompleteStep
	}
	w.submitting = true
	draft := *w.draft
	wizardCtx := w.ctx
	onSuccess := w.onSuccess
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.submitting = false
		w.mu.Unlock()
	}()

	// Tie the submit to the wizard's lifetime: Close cancels wizardCtx and
	// the write below is abandoned instead of applying stale.
	ctx, cancel := mergeContexts(ctx, wizardCtx)
	defer cancel()

	booking, err := w.buildBooking(ctx, &draft)
	if err != nil {
		metrics.IncWizardSubmission("auth_failed")
		return nil, err
	}

	var created models.Booking
	if err := w.store.Insert(ctx, models.TableBookings, booking, &created); err != nil {
		metrics.IncWizardSubmission("store_failed")
		w.logger.Error().Err(err).Msg("booking insert failed")
		return nil, err
	}

	metrics.IncWizardSubmission("submitted")
	if w.eventBus != nil {
		_ = w.eventBus.PublishJSON(events.EventBookingCreated, created)
	}

	// Successful flow is over: discard the draft before handing off.
	w.discard(context.WithoutCancel(ctx))

	if onSuccess != nil {
		onSuccess(created)
	}
	return &created, nil
}

func (w *BookingWizard) buildBooking(ctx context.Context, draft *models.BookingDraft) (*models.Booking, error) {
	service, err := w.catalog.GetService(ctx, draft.ServiceID)
	if err != nil {
		return nil, err
	}

	scheduledAt, err := draft.ScheduledAt(w.location)
	if err != nil {
		return nil, err
	}
	today := time.Now().In(w.location)
	startOfDay := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, w.location)
	if scheduledAt.Before(startOfDay) {
		return nil, ErrPastDate
	}

	customerID, err := w.identity.Resolve(ctx, strings.TrimSpace(draft.CustomerEmail), draft.Password, strings.TrimSpace(draft.CustomerName))
	if err != nil {
		return nil, err
	}
	if customerID == "" {
		return nil, ErrAuthRequired
	}

	return &models.Booking{
		ServiceID:  draft.ServiceID,
		Status:     models.StatusPending,
		ScheduledAt: scheduledAt,
		// Base price at submission time; the quote is revised manually
		// later, so the UI shows "pending quote" rather than this number.
		TotalPrice:          service.BasePrice,
		Address:             strings.TrimSpace(draft.Address),
		CustomerID:          customerID,
		CustomerName:        strings.TrimSpace(draft.CustomerName),
		CustomerEmail:       strings.TrimSpace(draft.CustomerEmail),
		CustomerPhone:       strings.TrimSpace(draft.CustomerPhone),
		SpecialInstructions: strings.TrimSpace(draft.SpecialInstructions),
	}, nil
}

// Close discards the draft immediately and cancels any in-flight submit.
// Reopening starts from an empty draft.
func (w *BookingWizard) Close(ctx context.Context) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	cancel := w.cancel
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.discard(ctx)
}

func (w *BookingWizard) discard(ctx context.Context) {
	w.mu.Lock()
	flowID := ""
	if w.draft != nil {
		flowID = w.draft.FlowID
	}
	w.draft = nil
	w.mu.Unlock()

	if flowID != "" {
		if err := w.drafts.ClearDraft(ctx, flowID); err != nil {
			w.logger.Warn().Err(err).Str("flow_id", flowID).Msg("failed to clear draft")
		}
	}
}

func (w *BookingWizard) openStateLocked() error {
	if w.closed || w.draft == nil {
		return ErrWizardClosed
	}
	return nil
}

func (w *BookingWizard) saveDraft(ctx context.Context) error {
	w.mu.Lock()
	if w.draft == nil {
		w.mu.Unlock()
		return nil
	}
	draft := *w.draft
	w.mu.Unlock()

	if err := w.drafts.SetDraft(ctx, &draft); err != nil {
		// Draft persistence is best-effort; the in-memory copy is primary.
		w.logger.Warn().Err(err).Str("flow_id", draft.FlowID).Msg("failed to persist draft")
	}
	return nil
}

// mergeContexts cancels when either parent cancels.
func mergeContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	if b == nil {
		return context.WithCancel(a)
	}
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
