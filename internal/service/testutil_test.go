package service

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"geauxclean/internal/backend"
	"geauxclean/internal/domain"
	"geauxclean/internal/models"
	"geauxclean/internal/realtime"
	"geauxclean/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("store down")

func testLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

var testCatalog = []models.Service{
	{ID: "residential-basic", Name: "Residential Basic", BasePrice: 120, DurationMinutes: 120},
	{ID: "office-basic", Name: "Office Basic", BasePrice: 180, DurationMinutes: 150},
	{ID: "residential-deep", Name: "Residential Deep Clean", BasePrice: 240, DurationMinutes: 240},
}

// newTestBackend gives each test a real sqlite store wired to an
// in-process change feed, pre-seeded with the catalog.
func newTestBackend(t *testing.T) (*backend.LocalStore, *realtime.BusFeed) {
	t.Helper()
	feed := realtime.NewBusFeed()
	store, err := backend.NewLocalStore(filepath.Join(t.TempDir(), "test.db"), feed)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.SeedServices(context.Background(), testCatalog))
	return store, feed
}

func newTestDrafts() domain.DraftRepository {
	return repository.NewMemoryDraftRepository(time.Hour)
}

// recordNotifier captures notices for assertions.
type recordNotifier struct {
	mu      sync.Mutex
	notices []string
}

func (n *recordNotifier) Notify(kind string, message string) {
	n.mu.Lock()
	n.notices = append(n.notices, kind+": "+message)
	n.mu.Unlock()
}

func (n *recordNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.notices...)
}

func (n *recordNotifier) contains(s string) bool {
	for _, notice := range n.all() {
		if notice == s {
			return true
		}
	}
	return false
}

// failingStore errors on every call. Used to assert that local state stays
// untouched when writes fail.
type failingStore struct{}

func (failingStore) Select(ctx context.Context, table string, filters []domain.Filter, order *domain.Order, dest any) error {
	return errStoreDown
}

func (failingStore) Insert(ctx context.Context, table string, row any, dest any) error {
	return errStoreDown
}

func (failingStore) Update(ctx context.Context, table string, id string, patch map[string]any, dest any) error {
	return errStoreDown
}

func (failingStore) Delete(ctx context.Context, table string, id string) error {
	return errStoreDown
}

// countingStore wraps a store and counts Select calls per table.
type countingStore struct {
	domain.Store
	mu      sync.Mutex
	selects map[string]int
}

func newCountingStore(inner domain.Store) *countingStore {
	return &countingStore{Store: inner, selects: make(map[string]int)}
}

func (c *countingStore) Select(ctx context.Context, table string, filters []domain.Filter, order *domain.Order, dest any) error {
	c.mu.Lock()
	c.selects[table]++
	c.mu.Unlock()
	return c.Store.Select(ctx, table, filters, order, dest)
}

func (c *countingStore) selectCount(table string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selects[table]
}
