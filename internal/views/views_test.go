package views

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisshield/case-dashboard/internal/models"
	"github.com/aegisshield/case-dashboard/internal/query"
)

func TestSavedViewValidate(t *testing.T) {
	valid := SavedView{
		UserID:        "u1",
		Name:          "Closed corruption cases",
		Tab:           models.TabClosed,
		Category:      "corruption",
		SortKey:       query.SortByCity,
		SortDirection: models.DirectionDesc,
		PageSize:      25,
		DateFrom:      "2024-01-01",
		DateTo:        "2024-03-31",
		Period:        "month",
	}
	require.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(v *SavedView)
	}{
		{"Blank name", func(v *SavedView) { v.Name = "  " }},
		{"Unknown tab", func(v *SavedView) { v.Tab = "archived" }},
		{"Unknown sort key", func(v *SavedView) { v.SortKey = "priority" }},
		{"Unknown direction", func(v *SavedView) { v.SortDirection = "up" }},
		{"Negative page size", func(v *SavedView) { v.PageSize = -1 }},
		{"Malformed date", func(v *SavedView) { v.DateTo = "31/03/2024" }},
		{"Unknown period", func(v *SavedView) { v.Period = "decade" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			view := valid
			tc.mutate(&view)
			err := view.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidView))
		})
	}
}

func TestSavedViewQueryParts(t *testing.T) {
	t.Run("Criteria carries every filter", func(t *testing.T) {
		view := SavedView{Tab: models.TabAssigned, Category: "harcelement", Search: "abc", Status: "en_cours", DateFrom: "2024-01-01", DateTo: "2024-02-01"}
		assert.Equal(t, models.FilterCriteria{
			Tab:      models.TabAssigned,
			Category: "harcelement",
			Search:   "abc",
			Status:   "en_cours",
			DateFrom: "2024-01-01",
			DateTo:   "2024-02-01",
		}, view.Criteria())
	})

	t.Run("Missing sort falls back to the default", func(t *testing.T) {
		assert.Equal(t, query.DefaultSort, (&SavedView{}).Sort())
	})

	t.Run("Missing direction means ascending", func(t *testing.T) {
		view := SavedView{SortKey: query.SortByName}
		assert.Equal(t, models.SortConfig{Key: query.SortByName, Direction: models.DirectionAsc}, view.Sort())
	})
}

func TestMemoryRepository(t *testing.T) {
	ctx := context.Background()

	newRepo := func() *MemoryRepository {
		repo := NewMemoryRepository()
		tick := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
		repo.now = func() time.Time {
			tick = tick.Add(time.Minute)
			return tick
		}
		return repo
	}

	t.Run("Create assigns an ID and timestamps", func(t *testing.T) {
		repo := newRepo()
		view := &SavedView{UserID: "u1", Name: "Mine"}
		require.NoError(t, repo.Create(ctx, view))
		assert.NotEmpty(t, view.ID)
		assert.False(t, view.CreatedAt.IsZero())
		assert.Equal(t, view.CreatedAt, view.UpdatedAt)

		got, err := repo.Get(ctx, view.ID, "u1")
		require.NoError(t, err)
		assert.Equal(t, "Mine", got.Name)
	})

	t.Run("Create rejects invalid views", func(t *testing.T) {
		repo := newRepo()
		err := repo.Create(ctx, &SavedView{UserID: "u1"})
		assert.True(t, errors.Is(err, ErrInvalidView))
	})

	t.Run("Views are scoped to their owner", func(t *testing.T) {
		repo := newRepo()
		view := &SavedView{UserID: "u1", Name: "Mine"}
		require.NoError(t, repo.Create(ctx, view))

		_, err := repo.Get(ctx, view.ID, "u2")
		assert.Equal(t, ErrViewNotFound, err)
		assert.Equal(t, ErrViewNotFound, repo.Delete(ctx, view.ID, "u2"))

		list, err := repo.List(ctx, "u2")
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("List is most recently updated first", func(t *testing.T) {
		repo := newRepo()
		first := &SavedView{UserID: "u1", Name: "First"}
		second := &SavedView{UserID: "u1", Name: "Second"}
		require.NoError(t, repo.Create(ctx, first))
		require.NoError(t, repo.Create(ctx, second))

		first.Search = "touched"
		require.NoError(t, repo.Update(ctx, first))

		list, err := repo.List(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "First", list[0].Name)
		assert.Equal(t, "touched", list[0].Search)
		assert.True(t, list[0].UpdatedAt.After(list[0].CreatedAt))
	})

	t.Run("Update keeps the creation time", func(t *testing.T) {
		repo := newRepo()
		view := &SavedView{UserID: "u1", Name: "Mine"}
		require.NoError(t, repo.Create(ctx, view))
		created := view.CreatedAt

		update := &SavedView{ID: view.ID, UserID: "u1", Name: "Renamed"}
		require.NoError(t, repo.Update(ctx, update))
		assert.Equal(t, created, update.CreatedAt)

		assert.Equal(t, ErrViewNotFound, repo.Update(ctx, &SavedView{ID: "missing", UserID: "u1", Name: "x"}))
	})

	t.Run("Delete removes the view", func(t *testing.T) {
		repo := newRepo()
		view := &SavedView{UserID: "u1", Name: "Mine"}
		require.NoError(t, repo.Create(ctx, view))
		require.NoError(t, repo.Delete(ctx, view.ID, "u1"))

		_, err := repo.Get(ctx, view.ID, "u1")
		assert.Equal(t, ErrViewNotFound, err)
	})
}
