package backend

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"geauxclean/internal/domain"
	"geauxclean/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordFeed collects published change events for assertions.
type recordFeed struct {
	mu     sync.Mutex
	events []domain.ChangeEvent
}

func (f *recordFeed) Publish(ctx context.Context, event domain.ChangeEvent) error {
	f.mu.Lock()
	f.events = append(f.events, event)
	f.mu.Unlock()
	return nil
}

func (f *recordFeed) all() []domain.ChangeEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ChangeEvent(nil), f.events...)
}

func newLocalStore(t *testing.T) (*LocalStore, *recordFeed) {
	t.Helper()
	feed := &recordFeed{}
	store, err := NewLocalStore(filepath.Join(t.TempDir(), "local.db"), feed)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, feed
}

func TestLocalStore(t *testing.T) {
	ctx := context.Background()

	t.Run("InsertAssignsIDAndTimestamp", func(t *testing.T) {
		store, feed := newLocalStore(t)

		var created models.AdminTask
		task := models.AdminTask{Title: "First", Priority: models.PriorityHigh, Status: models.TaskTodo}
		require.NoError(t, store.Insert(ctx, models.TableAdminTasks, task, &created))

		assert.NotEmpty(t, created.ID)
		assert.False(t, created.CreatedAt.IsZero())

		events := feed.all()
		require.Len(t, events, 1)
		assert.Equal(t, domain.ChangeInsert, events[0].Type)
		assert.Equal(t, models.TableAdminTasks, events[0].Table)
	})

	t.Run("SelectFilters", func(t *testing.T) {
		store, _ := newLocalStore(t)
		for _, status := range []string{models.StatusPending, models.StatusConfirmed, models.StatusCompleted} {
			b := models.Booking{ServiceID: "residential-basic", Status: status, ScheduledAt: time.Now()}
			require.NoError(t, store.Insert(ctx, models.TableBookings, b, nil))
		}

		var pending []models.Booking
		require.NoError(t, store.Select(ctx, models.TableBookings,
			[]domain.Filter{domain.Eq("status", models.StatusPending)}, nil, &pending))
		require.Len(t, pending, 1)

		var active []models.Booking
		require.NoError(t, store.Select(ctx, models.TableBookings,
			[]domain.Filter{domain.In("status", models.StatusPending, models.StatusConfirmed)}, nil, &active))
		assert.Len(t, active, 2)

		var notPending []models.Booking
		require.NoError(t, store.Select(ctx, models.TableBookings,
			[]domain.Filter{{Column: "status", Op: "neq", Value: models.StatusPending}}, nil, &notPending))
		assert.Len(t, notPending, 2)
	})

	t.Run("SelectOrder", func(t *testing.T) {
		store, _ := newLocalStore(t)
		for _, svc := range []models.Service{
			{ID: "b", Name: "Mid", BasePrice: 180},
			{ID: "c", Name: "High", BasePrice: 240},
			{ID: "a", Name: "Low", BasePrice: 120},
		} {
			require.NoError(t, store.Insert(ctx, models.TableServices, svc, nil))
		}

		var asc []models.Service
		require.NoError(t, store.Select(ctx, models.TableServices, nil, &domain.Order{Column: "base_price"}, &asc))
		require.Len(t, asc, 3)
		assert.Equal(t, "a", asc[0].ID)
		assert.Equal(t, "c", asc[2].ID)

		var desc []models.Service
		require.NoError(t, store.Select(ctx, models.TableServices, nil, &domain.Order{Column: "base_price", Descending: true}, &desc))
		assert.Equal(t, "c", desc[0].ID)
	})

	t.Run("UpdateMergesPatch", func(t *testing.T) {
		store, feed := newLocalStore(t)
		var created models.AdminTask
		require.NoError(t, store.Insert(ctx, models.TableAdminTasks,
			models.AdminTask{Title: "Keep title", Priority: models.PriorityLow, Status: models.TaskTodo}, &created))

		var updated models.AdminTask
		require.NoError(t, store.Update(ctx, models.TableAdminTasks, created.ID,
			map[string]any{"status": models.TaskDone}, &updated))

		assert.Equal(t, "Keep title", updated.Title)
		assert.Equal(t, models.TaskDone, updated.Status)

		events := feed.all()
		require.Len(t, events, 2)
		assert.Equal(t, domain.ChangeUpdate, events[1].Type)
		assert.NotEmpty(t, events[1].Old, "update events carry the previous row")
	})

	t.Run("UpdateMissingRow", func(t *testing.T) {
		store, _ := newLocalStore(t)
		err := store.Update(ctx, models.TableAdminTasks, "ghost", map[string]any{"status": models.TaskDone}, nil)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		store, feed := newLocalStore(t)
		var created models.AdminTask
		require.NoError(t, store.Insert(ctx, models.TableAdminTasks,
			models.AdminTask{Title: "Short lived", Priority: models.PriorityLow, Status: models.TaskTodo}, &created))
		require.NoError(t, store.Delete(ctx, models.TableAdminTasks, created.ID))

		var remaining []models.AdminTask
		require.NoError(t, store.Select(ctx, models.TableAdminTasks, nil, nil, &remaining))
		assert.Empty(t, remaining)

		events := feed.all()
		require.Len(t, events, 2)
		assert.Equal(t, domain.ChangeDelete, events[1].Type)

		assert.ErrorIs(t, store.Delete(ctx, models.TableAdminTasks, created.ID), ErrNotFound)
	})

	t.Run("TablesAreIsolated", func(t *testing.T) {
		store, _ := newLocalStore(t)
		require.NoError(t, store.Insert(ctx, models.TableAdminTasks,
			models.AdminTask{Title: "Task", Priority: models.PriorityLow, Status: models.TaskTodo}, nil))

		var bookings []models.Booking
		require.NoError(t, store.Select(ctx, models.TableBookings, nil, nil, &bookings))
		assert.Empty(t, bookings)
	})

	t.Run("SeedServicesOnlyWhenEmpty", func(t *testing.T) {
		store, _ := newLocalStore(t)
		catalog := []models.Service{{ID: "one", Name: "One", BasePrice: 100}}
		require.NoError(t, store.SeedServices(ctx, catalog))
		require.NoError(t, store.SeedServices(ctx, catalog))

		var services []models.Service
		require.NoError(t, store.Select(ctx, models.TableServices, nil, nil, &services))
		assert.Len(t, services, 1)
	})
}

func TestLocalAuth(t *testing.T) {
	ctx := context.Background()

	t.Run("SignUpProvisionsProfile", func(t *testing.T) {
		store, _ := newLocalStore(t)
		auth := NewLocalAuth(store)

		session, err := auth.SignUp(ctx, " Pat@Example.COM ", "secret123",
			map[string]string{"full_name": "Pat B", "role": models.RoleCustomer})
		require.NoError(t, err)
		assert.Equal(t, "pat@example.com", session.Email)
		assert.NotEmpty(t, session.AccessToken)

		var users []models.User
		require.NoError(t, store.Select(ctx, models.TableUsers,
			[]domain.Filter{domain.Eq("email", "pat@example.com")}, nil, &users))
		require.Len(t, users, 1)
		assert.Equal(t, "Pat B", users[0].FullName)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		store, _ := newLocalStore(t)
		auth := NewLocalAuth(store)
		_, err := auth.SignUp(ctx, "dup@example.com", "secret123", nil)
		require.NoError(t, err)

		_, err = auth.SignUp(ctx, "dup@example.com", "other456", nil)
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("SignInLifecycle", func(t *testing.T) {
		store, _ := newLocalStore(t)
		auth := NewLocalAuth(store)
		created, err := auth.SignUp(ctx, "who@example.com", "secret123", nil)
		require.NoError(t, err)
		require.NoError(t, auth.SignOut(ctx))

		session, err := auth.GetSession(ctx)
		require.NoError(t, err)
		assert.Nil(t, session)

		_, err = auth.SignInWithPassword(ctx, "who@example.com", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		_, err = auth.SignInWithPassword(ctx, "nobody@example.com", "secret123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		signedIn, err := auth.SignInWithPassword(ctx, "who@example.com", "secret123")
		require.NoError(t, err)
		assert.Equal(t, created.UserID, signedIn.UserID)

		session, err = auth.GetSession(ctx)
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, created.UserID, session.UserID)
	})

	t.Run("DefaultRoleIsCustomer", func(t *testing.T) {
		store, _ := newLocalStore(t)
		auth := NewLocalAuth(store)
		created, err := auth.SignUp(ctx, "norole@example.com", "secret123", nil)
		require.NoError(t, err)

		var users []models.User
		require.NoError(t, store.Select(ctx, models.TableUsers,
			[]domain.Filter{domain.Eq("id", created.UserID)}, nil, &users))
		require.Len(t, users, 1)
		assert.Equal(t, models.RoleCustomer, users[0].Role)
	})
}
