package service

import (
	"context"
	"strings"
	"sync"

	"geauxclean/internal/domain"
	"geauxclean/internal/events"
	"geauxclean/internal/metrics"
	"geauxclean/internal/models"

	"github.com/rs/zerolog"
)

// TaskBoard keeps the admin task list consistent with the admin_tasks
// table: one bulk load at start plus incremental change-feed events, with
// drag-and-drop and toggle writes going straight to the store. There is no
// optimistic rollback on failed writes; the feed is the source of eventual
// convergence.
type TaskBoard struct {
	store    domain.Store
	feed     domain.ChangeFeed
	notifier domain.Notifier
	eventBus domain.EventPublisher
	logger   *zerolog.Logger

	mu      sync.Mutex
	tasks   []models.AdminTask
	dragged *models.AdminTask
	unsub   func()
	started bool
}

func NewTaskBoard(store domain.Store, feed domain.ChangeFeed, notifier domain.Notifier, eventBus domain.EventPublisher, logger *zerolog.Logger) *TaskBoard {
	return &TaskBoard{store: store, feed: feed, notifier: notifier, eventBus: eventBus, logger: logger}
}

// Start opens the feed subscription and bulk-loads the current task set.
// An event racing the bulk load is tolerated: the handler works on
// whatever list is current, and the load replaces state wholesale.
// A board that is already running keeps its subscription; repeat Start is
// a no-op.
func (b *TaskBoard) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return nil
	}
	b.started = true
	b.mu.Unlock()

	unsub, err := b.feed.Subscribe(ctx, models.TableAdminTasks, b.handleChange)
	if err != nil {
		b.mu.Lock()
		b.started = false
		b.mu.Unlock()
		return err
	}

	var tasks []models.AdminTask
	order := &domain.Order{Column: "created_at", Descending: true}
	if err := b.store.Select(ctx, models.TableAdminTasks, nil, order, &tasks); err != nil {
		unsub()
		b.mu.Lock()
		b.started = false
		b.mu.Unlock()
		return err
	}

	b.mu.Lock()
	b.tasks = tasks
	b.unsub = unsub
	b.mu.Unlock()
	return nil
}

// Stop closes the feed subscription.
func (b *TaskBoard) Stop() {
	b.mu.Lock()
	unsub := b.unsub
	b.unsub = nil
	b.started = false
	b.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (b *TaskBoard) handleChange(event domain.ChangeEvent) {
	b.mu.Lock()
	b.tasks = ApplyTaskChange(b.tasks, event)
	b.mu.Unlock()
}

// Tasks returns a snapshot of the full list, newest first.
func (b *TaskBoard) Tasks() []models.AdminTask {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.AdminTask(nil), b.tasks...)
}

// Column returns the snapshot filtered to one board column.
func (b *TaskBoard) Column(status string) []models.AdminTask {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []models.AdminTask
	for _, t := range b.tasks {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

// CreateTask inserts a new card. Title is trimmed and required; priority
// defaults to medium; status is always todo.
func (b *TaskBoard) CreateTask(ctx context.Context, title, priority string) (*models.AdminTask, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrIncompleteStep
	}
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !models.ValidPriority(priority) {
		priority = models.PriorityMedium
	}

	var created models.AdminTask
	task := models.AdminTask{Title: title, Priority: priority, Status: models.TaskTodo}
	if err := b.store.Insert(ctx, models.TableAdminTasks, task, &created); err != nil {
		b.notify(domain.NoticeError, "Failed to create task")
		return nil, err
	}

	b.mu.Lock()
	b.tasks = ApplyTaskChange(b.tasks, insertEventFor(created))
	b.mu.Unlock()

	b.notify(domain.NoticeSuccess, "Task created successfully")
	return &created, nil
}

// ToggleTask flips todo⇄done, never touching in_progress. A shortcut for
// marking simple items complete without dragging.
func (b *TaskBoard) ToggleTask(ctx context.Context, id string) error {
	b.mu.Lock()
	var current *models.AdminTask
	for i := range b.tasks {
		if b.tasks[i].ID == id {
			current = &b.tasks[i]
			break
		}
	}
	if current == nil {
		b.mu.Unlock()
		return ErrTaskNotFound
	}
	newStatus := models.TaskDone
	if current.Status == models.TaskDone {
		newStatus = models.TaskTodo
	}
	b.mu.Unlock()

	return b.writeStatus(ctx, id, newStatus, false)
}

// DragStart remembers the dragged task by id.
func (b *TaskBoard) DragStart(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.tasks {
		if b.tasks[i].ID == id {
			task := b.tasks[i]
			b.dragged = &task
			return
		}
	}
}

// DragEnd clears the dragged reference without a drop.
func (b *TaskBoard) DragEnd() {
	b.mu.Lock()
	b.dragged = nil
	b.mu.Unlock()
}

// Dragged returns the task currently held, nil when none.
func (b *TaskBoard) Dragged() *models.AdminTask {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dragged == nil {
		return nil
	}
	task := *b.dragged
	return &task
}

// Drop moves the dragged task into the target column. The dragged
// reference is cleared whether or not the write succeeds; drag state must
// never get stuck.
func (b *TaskBoard) Drop(ctx context.Context, status string) error {
	if !models.ValidTaskStatus(status) {
		b.DragEnd()
		return ErrNoDraggedTask
	}

	b.mu.Lock()
	dragged := b.dragged
	b.dragged = nil
	b.mu.Unlock()

	if dragged == nil {
		return ErrNoDraggedTask
	}

	if err := b.writeStatus(ctx, dragged.ID, status, true); err != nil {
		return err
	}
	metrics.IncTaskMove(status)
	if b.eventBus != nil {
		_ = b.eventBus.PublishJSON(events.EventTaskMoved, events.TaskMovedPayload{TaskID: dragged.ID, Status: status})
	}
	return nil
}

func (b *TaskBoard) writeStatus(ctx context.Context, id, status string, isMove bool) error {
	var updated models.AdminTask
	err := b.store.Update(ctx, models.TableAdminTasks, id, map[string]any{"status": status}, &updated)
	if err != nil {
		if isMove {
			b.notify(domain.NoticeError, "Failed to move task")
		}
		b.logger.Error().Err(err).Str("task_id", id).Str("status", status).Msg("task status write failed")
		// Local list left as-is; the feed delivers whatever really
		// happened.
		return err
	}

	b.mu.Lock()
	b.tasks = ApplyTaskChange(b.tasks, updateEventFor(updated))
	b.mu.Unlock()

	if isMove {
		b.notify(domain.NoticeSuccess, "Task moved to "+columnLabel(status))
	}
	return nil
}

// DeleteTask removes a card after the confirm callback approves. There is
// no undo, so an unconfirmed delete leaves the list untouched.
func (b *TaskBoard) DeleteTask(ctx context.Context, id string, confirm func(title string) bool) error {
	b.mu.Lock()
	title := ""
	found := false
	for _, t := range b.tasks {
		if t.ID == id {
			title = t.Title
			found = true
			break
		}
	}
	b.mu.Unlock()
	if !found {
		return ErrTaskNotFound
	}

	if confirm == nil || !confirm(title) {
		return ErrNotConfirmed
	}

	if err := b.store.Delete(ctx, models.TableAdminTasks, id); err != nil {
		b.logger.Error().Err(err).Str("task_id", id).Msg("task delete failed")
		return err
	}

	b.mu.Lock()
	b.tasks = ApplyTaskChange(b.tasks, deleteEventFor(id))
	b.mu.Unlock()

	b.notify(domain.NoticeInfo, "Task deleted")
	return nil
}

func (b *TaskBoard) notify(kind, message string) {
	if b.notifier != nil {
		b.notifier.Notify(kind, message)
	}
}

func columnLabel(status string) string {
	switch status {
	case models.TaskTodo:
		return "To Do"
	case models.TaskInProgress:
		return "In Progress"
	case models.TaskDone:
		return "Done"
	}
	return status
}
