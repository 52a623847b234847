package notify

import (
	"context"
	"sync"
	"time"

	"geauxclean/internal/metrics"
	"geauxclean/internal/worker"

	"github.com/rs/zerolog"
)

// Notice is one queued user-facing notification.
type Notice struct {
	Kind      string
	Message   string
	CreatedAt time.Time
	attempts  int
}

// Worker drains a notice queue and "delivers" each entry. Actual SMS/push
// delivery is simulated: the sink is the structured log. Failed deliveries
// retry with backoff up to the policy's limit, then drop.
type Worker struct {
	queue  chan Notice
	retry  worker.RetryPolicy
	logger *zerolog.Logger

	deliver func(Notice) error

	mu      sync.Mutex
	started bool
	done    chan struct{}
}

func NewWorker(queueSize int, retry worker.RetryPolicy, logger *zerolog.Logger) *Worker {
	if queueSize <= 0 {
		queueSize = 100
	}
	if retry.MaxRetries == 0 {
		retry = worker.RetryPolicy{MaxRetries: 3, InitialDelay: time.Second, MaxDelay: 10 * time.Second, BackoffFactor: 2}
	}
	w := &Worker{
		queue:  make(chan Notice, queueSize),
		retry:  retry,
		logger: logger,
		done:   make(chan struct{}),
	}
	w.deliver = w.simulateDelivery
	return w
}

// Notify enqueues a notice. A full queue drops the notice rather than
// blocking the caller; a toast is not worth stalling the UI thread.
func (w *Worker) Notify(kind string, message string) {
	notice := Notice{Kind: kind, Message: message, CreatedAt: time.Now()}
	select {
	case w.queue <- notice:
	default:
		w.logger.Warn().Str("kind", kind).Msg("notification queue full, dropping")
	}
}

// Start runs the drain loop until ctx is done, then drains what is left.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()

	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case notice := <-w.queue:
			w.process(ctx, notice)
		}
	}
}

// Done is closed after the drain loop exits.
func (w *Worker) Done() <-chan struct{} { return w.done }

func (w *Worker) process(ctx context.Context, notice Notice) {
	for {
		err := w.deliver(notice)
		if err == nil {
			metrics.IncNotification(notice.Kind)
			return
		}

		notice.attempts++
		if notice.attempts > w.retry.MaxRetries {
			w.logger.Error().Err(err).Str("kind", notice.Kind).Msg("notification dropped after retries")
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.retry.NextDelay(notice.attempts)):
		}
	}
}

func (w *Worker) drain() {
	for {
		select {
		case notice := <-w.queue:
			if err := w.deliver(notice); err == nil {
				metrics.IncNotification(notice.Kind)
			}
		default:
			return
		}
	}
}

func (w *Worker) simulateDelivery(notice Notice) error {
	w.logger.Info().
		Str("kind", notice.Kind).
		Str("message", notice.Message).
		Time("created_at", notice.CreatedAt).
		Msg("notification delivered (simulated)")
	return nil
}
