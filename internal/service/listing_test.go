package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/testdrive-marketplace/internal/apperr"
	"github.com/iliyamo/testdrive-marketplace/internal/model"
)

func validCar() CarInput {
	return CarInput{
		Make: "Porsche", Model: "Taycan", Year: 2023, Color: "White", Price: 95000, Mileage: 1200,
		Transmission: model.TransmissionAutomatic, FuelType: model.FuelElectric,
		Description: "Launch edition", Location: "Stuttgart", Uploads: []string{"/uploads/a.jpg"},
	}
}

func newListingService(t *testing.T) (*ListingService, *memDB, *recordingImages) {
	t.Helper()
	db := newMemDB()
	imgs := &recordingImages{}
	s := NewListingService(memCars{db}, imgs, nil)
	s.now = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }
	return s, db, imgs
}

func TestListingCreateValidation(t *testing.T) {
	s, _, _ := newListingService(t)
	ctx := context.Background()

	car, err := s.Create(ctx, "owner-1", validCar())
	require.NoError(t, err)
	assert.True(t, car.IsAvailable)
	assert.Equal(t, "owner-1", car.OwnerID)

	cases := map[string]func(*CarInput){
		"year too old":     func(c *CarInput) { c.Year = 1899 },
		"year too new":     func(c *CarInput) { c.Year = 2026 },
		"negative price":   func(c *CarInput) { c.Price = -1 },
		"negative mileage": func(c *CarInput) { c.Mileage = -5 },
		"bad transmission": func(c *CarInput) { c.Transmission = "CVT" },
		"bad fuel":         func(c *CarInput) { c.FuelType = "Steam" },
		"missing make":     func(c *CarInput) { c.Make = "  " },
		"missing location": func(c *CarInput) { c.Location = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validCar()
			mutate(&in)
			_, err := s.Create(ctx, "owner-1", in)
			assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
		})
	}

	edge := validCar()
	edge.Year = 2025 // current year + 1
	edge.Price, edge.Mileage = 0, 0
	_, err = s.Create(ctx, "owner-1", edge)
	assert.NoError(t, err)
}

func TestListingListFiltersAvailableByKeyword(t *testing.T) {
	s, db, _ := newListingService(t)
	ctx := context.Background()

	a, err := s.Create(ctx, "o1", validCar())
	require.NoError(t, err)
	other := validCar()
	other.Make, other.Model, other.Location, other.Description = "Fiat", "Panda", "Rome", "city car"
	b, err := s.Create(ctx, "o1", other)
	require.NoError(t, err)
	hidden := validCar()
	hidden.Description = "garage queen"
	c, err := s.Create(ctx, "o2", hidden)
	require.NoError(t, err)
	require.NoError(t, memCars{db}.SetAvailability(ctx, c.ID, false))

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, b.ID, all[0].ID, "newest first")

	hits, err := s.List(ctx, "STUTT")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, a.ID, hits[0].ID)

	hits, err = s.List(ctx, "city")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, b.ID, hits[0].ID)

	mine, err := s.ListByOwner(ctx, "o2")
	require.NoError(t, err)
	require.Len(t, mine, 1, "owners see unavailable listings")
}

func TestListingOwnerOnlyMutations(t *testing.T) {
	s, _, _ := newListingService(t)
	ctx := context.Background()
	car, err := s.Create(ctx, "o1", validCar())
	require.NoError(t, err)

	price := 1.0
	_, err = s.Update(ctx, car.ID, "o2", CarPatch{Price: &price})
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))
	_, err = s.ToggleAvailability(ctx, car.ID, "o2")
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(s.Delete(ctx, car.ID, "o2")))

	_, err = s.Update(ctx, "missing", "o1", CarPatch{})
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestListingUpdateRevalidatesAndDropsImages(t *testing.T) {
	s, _, imgs := newListingService(t)
	ctx := context.Background()
	car, err := s.Create(ctx, "o1", validCar())
	require.NoError(t, err)

	year := 1800
	_, err = s.Update(ctx, car.ID, "o1", CarPatch{Year: &year})
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))

	color := " Red "
	updated, err := s.Update(ctx, car.ID, "o1", CarPatch{Color: &color, Uploads: []string{"/uploads/b.jpg"}})
	require.NoError(t, err)
	assert.Equal(t, "Red", updated.Color)
	assert.Equal(t, 2023, updated.Year)
	assert.Equal(t, []string{"/uploads/b.jpg"}, updated.Images)
	assert.Equal(t, []string{"/uploads/a.jpg"}, imgs.deleted)
}

func TestListingToggleAvailability(t *testing.T) {
	s, _, _ := newListingService(t)
	ctx := context.Background()
	car, err := s.Create(ctx, "o1", validCar())
	require.NoError(t, err)

	got, err := s.ToggleAvailability(ctx, car.ID, "o1")
	require.NoError(t, err)
	assert.False(t, got.IsAvailable)
	got, err = s.ToggleAvailability(ctx, car.ID, "o1")
	require.NoError(t, err)
	assert.True(t, got.IsAvailable)
}

func TestListingDeletePolicy(t *testing.T) {
	ctx := context.Background()
	f := newLifecycleFixture(t)
	imgs := &recordingImages{}
	listings := NewListingService(memCars{f.db}, imgs, nil)
	f.car.Images = []string{"/uploads/x.png"}
	require.NoError(t, memCars{f.db}.Update(ctx, f.car))

	req := f.create(t, f.j1.ID)
	err := listings.Delete(ctx, f.car.ID, f.owner.ID)
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err), "pending request blocks deletion")

	_, err = f.svc.UpdateStatus(ctx, req.ID, f.owner.ID, model.StatusRejected, nil)
	require.NoError(t, err)
	require.NoError(t, listings.Delete(ctx, f.car.ID, f.owner.ID))

	_, err = listings.GetByID(ctx, f.car.ID)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	_, err = f.svc.GetByID(ctx, req.ID, f.j1.ID)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err), "inactive requests go with the car")
	assert.Equal(t, []string{"/uploads/x.png"}, imgs.deleted)
}

func TestListingRejectsStoredImagesFromElsewhere(t *testing.T) {
	s, _, imgs := newListingService(t)
	ctx := context.Background()

	carA, err := s.Create(ctx, "owner-A", validCar())
	require.NoError(t, err)
	require.Equal(t, []string{"/uploads/a.jpg"}, carA.Images)

	stolen := validCar()
	stolen.Uploads = nil
	stolen.Images = []string{"/uploads/a.jpg"}
	_, err = s.Create(ctx, "owner-B", stolen)
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))

	stolen.Images = []string{"/uploads//a.jpg"}
	_, err = s.Create(ctx, "owner-B", stolen)
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))

	stolen.Images = []string{"https://cdn.example.com/b.jpg"}
	carB, err := s.Create(ctx, "owner-B", stolen)
	require.NoError(t, err)

	images := []string{"https://cdn.example.com/b.jpg", "/uploads/a.jpg"}
	_, err = s.Update(ctx, carB.ID, "owner-B", CarPatch{Images: &images})
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))

	require.NoError(t, s.Delete(ctx, carB.ID, "owner-B"))
	assert.NotContains(t, imgs.deleted, "/uploads/a.jpg")

	got, err := s.GetByID(ctx, carA.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"/uploads/a.jpg"}, got.Images)
}

func TestListingUpdateKeepsOwnStoredImages(t *testing.T) {
	s, _, imgs := newListingService(t)
	ctx := context.Background()
	car, err := s.Create(ctx, "o1", validCar())
	require.NoError(t, err)

	images := []string{"/uploads/a.jpg", "https://cdn.example.com/extra.jpg"}
	updated, err := s.Update(ctx, car.ID, "o1", CarPatch{Images: &images, Uploads: []string{"/uploads/c.jpg"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"/uploads/a.jpg", "https://cdn.example.com/extra.jpg", "/uploads/c.jpg"}, updated.Images)
	assert.Empty(t, imgs.deleted)
}
