package service

import (
	"context"
	"testing"
	"time"

	"geauxclean/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogService(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestBackend(t)
	counting := newCountingStore(store)
	catalog := NewCatalogService(counting, time.Minute, testLogger())

	t.Run("OrderedCheapestFirst", func(t *testing.T) {
		services, err := catalog.GetServices(ctx)
		require.NoError(t, err)
		require.Len(t, services, 3)
		assert.Equal(t, []string{"residential-basic", "office-basic", "residential-deep"},
			[]string{services[0].ID, services[1].ID, services[2].ID})
	})

	t.Run("SecondReadServedFromCache", func(t *testing.T) {
		before := counting.selectCount(models.TableServices)
		_, err := catalog.GetServices(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, counting.selectCount(models.TableServices))
	})

	t.Run("GetService", func(t *testing.T) {
		svc, err := catalog.GetService(ctx, "office-basic")
		require.NoError(t, err)
		assert.Equal(t, 180.0, svc.BasePrice)

		_, err = catalog.GetService(ctx, "nope")
		assert.ErrorIs(t, err, ErrUnknownService)
	})

	t.Run("InvalidateForcesReload", func(t *testing.T) {
		before := counting.selectCount(models.TableServices)
		catalog.Invalidate()
		_, err := catalog.GetServices(ctx)
		require.NoError(t, err)
		assert.Equal(t, before+1, counting.selectCount(models.TableServices))
	})

	t.Run("ErrorPropagates", func(t *testing.T) {
		broken := NewCatalogService(failingStore{}, time.Minute, testLogger())
		_, err := broken.GetServices(ctx)
		assert.ErrorIs(t, err, errStoreDown)
	})
}
