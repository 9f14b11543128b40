package database

import (
	"context"
	"testing"

	"queueaway/internal/domain"
	"queueaway/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBusiness(name string) *models.Business {
	lat, lng := 28.6139, 77.2090
	return &models.Business{
		Name:               name,
		Category:           models.CategorySalon,
		Services:           []string{"Haircut", "Coloring"},
		Address:            "123 Main Street",
		Latitude:           &lat,
		Longitude:          &lng,
		OpeningHours:       map[string]models.Hours{"monday": {Open: "09:00", Close: "19:00"}, "sunday": {Closed: true}},
		AverageServiceTime: 45,
		CurrentQueue:       3,
		Rating:             4.8,
	}
}

func TestCreateAndGetBusiness(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	b := newTestBusiness("Luxe Hair Studio")
	require.NoError(t, db.CreateBusiness(ctx, b))
	assert.NotEmpty(t, b.ID)

	got, err := db.GetBusiness(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Luxe Hair Studio", got.Name)
	assert.Equal(t, []string{"Haircut", "Coloring"}, got.Services)
	assert.True(t, got.OpeningHours["sunday"].Closed)
	require.True(t, got.HasCoordinates())
	assert.InDelta(t, 28.6139, *got.Latitude, 1e-9)
	assert.Equal(t, 3, got.CurrentQueue)
}

func TestBusinessWithoutCoordinates(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	b := newTestBusiness("Classic Barber Co.")
	b.Latitude, b.Longitude = nil, nil
	require.NoError(t, db.CreateBusiness(ctx, b))

	got, err := db.GetBusiness(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, got.HasCoordinates())
}

func TestGetBusiness_NotFound(t *testing.T) {
	db := setupTestDB(t)
	_, err := db.GetBusiness(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateBusiness(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	b := newTestBusiness("Glow Beauty Lounge")
	require.NoError(t, db.CreateBusiness(ctx, b))

	name := "Glow Lounge"
	avg := 40
	require.NoError(t, db.UpdateBusiness(ctx, b.ID, models.BusinessUpdate{Name: &name, AverageServiceTime: &avg}))

	got, err := db.GetBusiness(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Glow Lounge", got.Name)
	assert.Equal(t, 40, got.AverageServiceTime)
	assert.Equal(t, 3, got.CurrentQueue)
	assert.Equal(t, "123 Main Street", got.Address)

	assert.ErrorIs(t, db.UpdateBusiness(ctx, "missing", models.BusinessUpdate{Name: &name}), domain.ErrNotFound)
}

func TestUpdateQueueCount(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	b := newTestBusiness("Ink Masters Tattoo")
	require.NoError(t, db.CreateBusiness(ctx, b))

	require.NoError(t, db.UpdateQueueCount(ctx, b.ID, 0))
	got, err := db.GetBusiness(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CurrentQueue)

	assert.Error(t, db.UpdateQueueCount(ctx, b.ID, -1))
	assert.ErrorIs(t, db.UpdateQueueCount(ctx, "missing", 1), domain.ErrNotFound)
}

func TestListBusinesses_Ordering(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for _, tc := range []struct {
		name     string
		category string
		rating   float64
	}{
		{"Zen Wellness Center", models.CategorySpa, 4.8},
		{"Serenity Spa", models.CategorySpa, 4.9},
		{"Classic Barber Co.", models.CategoryBarber, 4.6},
	} {
		b := newTestBusiness(tc.name)
		b.Category = tc.category
		b.Rating = tc.rating
		require.NoError(t, db.CreateBusiness(ctx, b))
	}

	all, err := db.ListBusinesses(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Classic Barber Co.", all[0].Name)
	assert.Equal(t, "Serenity Spa", all[1].Name)
	assert.Equal(t, "Zen Wellness Center", all[2].Name)

	spas, err := db.ListBusinessesByCategory(ctx, models.CategorySpa)
	require.NoError(t, err)
	require.Len(t, spas, 2)
	assert.Equal(t, "Serenity Spa", spas[0].Name)
	assert.Equal(t, "Zen Wellness Center", spas[1].Name)

	none, err := db.ListBusinessesByCategory(ctx, models.CategoryTattoo)
	require.NoError(t, err)
	assert.Empty(t, none)

	count, err := db.CountBusinesses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
