package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/testdrive-marketplace/internal/apperr"
	"github.com/iliyamo/testdrive-marketplace/internal/model"
	"github.com/iliyamo/testdrive-marketplace/internal/repository"
)

const msgCarNotFound = "car not found"

// ImageRemover deletes stored listing images. It is implemented by
// *storage.DiskImages.
type ImageRemover interface {
	Delete(ref string) error
	// Managed reports whether ref points at a file kept by the store.
	Managed(ref string) bool
}

// ListingService manages car listings. Every mutation is restricted to the
// listing's owner.
type ListingService struct {
	cars   CarStore
	images ImageRemover
	log    *zap.Logger
	now    func() time.Time
}

func NewListingService(cars CarStore, images ImageRemover, log *zap.Logger) *ListingService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ListingService{cars: cars, images: images, log: log, now: time.Now}
}

// CarInput holds the attributes of a new listing.
type CarInput struct {
	Make         string
	Model        string
	Year         int
	Color        string
	Price        float64
	Mileage      int
	Transmission model.Transmission
	FuelType     model.FuelType
	Description  string
	Location     string
	Images       []string
	// Uploads are refs stored for this listing by the current request.
	Uploads []string
}

// CarPatch holds the attributes to change on a listing; nil fields are kept.
type CarPatch struct {
	Make         *string
	Model        *string
	Year         *int
	Color        *string
	Price        *float64
	Mileage      *int
	Transmission *model.Transmission
	FuelType     *model.FuelType
	Description  *string
	Location     *string
	Images       *[]string
	IsAvailable  *bool
	// Uploads are refs stored by the current request. With Images unset
	// they replace the listing's images, otherwise they are appended.
	Uploads []string
}

// Create validates in and stores it as an available listing of ownerID.
func (s *ListingService) Create(ctx context.Context, ownerID string, in CarInput) (*model.Car, error) {
	car := &model.Car{
		OwnerID:      ownerID,
		Make:         strings.TrimSpace(in.Make),
		Model:        strings.TrimSpace(in.Model),
		Year:         in.Year,
		Color:        strings.TrimSpace(in.Color),
		Price:        in.Price,
		Mileage:      in.Mileage,
		Transmission: in.Transmission,
		FuelType:     in.FuelType,
		Description:  strings.TrimSpace(in.Description),
		Location:     strings.TrimSpace(in.Location),
		IsAvailable:  true,
	}
	if err := s.checkRefs(in.Images, nil); err != nil {
		return nil, err
	}
	car.Images = append(append([]string{}, in.Images...), in.Uploads...)
	if err := s.validate(car); err != nil {
		return nil, err
	}
	if err := s.cars.Create(ctx, car); err != nil {
		return nil, storeErr(err, msgCarNotFound)
	}
	s.log.Info("listing created", zap.String("car_id", car.ID), zap.String("owner_id", ownerID))
	return car, nil
}

// List returns available listings whose make, model, location or
// description contains keyword, ignoring case. An empty keyword matches all.
func (s *ListingService) List(ctx context.Context, keyword string) ([]model.CarWithOwner, error) {
	out, err := s.cars.ListAvailable(ctx, keyword)
	return out, storeErr(err, msgCarNotFound)
}

// ListByOwner returns every listing of ownerID, available or not.
func (s *ListingService) ListByOwner(ctx context.Context, ownerID string) ([]model.Car, error) {
	out, err := s.cars.ListByOwner(ctx, ownerID)
	return out, storeErr(err, msgCarNotFound)
}

// GetByID returns a listing.
func (s *ListingService) GetByID(ctx context.Context, id string) (*model.Car, error) {
	car, err := s.cars.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, msgCarNotFound)
	}
	return car, nil
}

// Update applies patch to a listing of callerID and re-validates the result.
// Images dropped by the patch are removed from storage afterwards.
func (s *ListingService) Update(ctx context.Context, id, callerID string, patch CarPatch) (*model.Car, error) {
	car, err := s.owned(ctx, id, callerID, "update")
	if err != nil {
		return nil, err
	}
	oldImages := car.Images

	setString(&car.Make, patch.Make)
	setString(&car.Model, patch.Model)
	setString(&car.Color, patch.Color)
	setString(&car.Description, patch.Description)
	setString(&car.Location, patch.Location)
	if patch.Year != nil {
		car.Year = *patch.Year
	}
	if patch.Price != nil {
		car.Price = *patch.Price
	}
	if patch.Mileage != nil {
		car.Mileage = *patch.Mileage
	}
	if patch.Transmission != nil {
		car.Transmission = *patch.Transmission
	}
	if patch.FuelType != nil {
		car.FuelType = *patch.FuelType
	}
	imagesChanged := patch.Images != nil || len(patch.Uploads) > 0
	if patch.Images != nil {
		if err := s.checkRefs(*patch.Images, oldImages); err != nil {
			return nil, err
		}
		car.Images = append([]string{}, *patch.Images...)
	} else if len(patch.Uploads) > 0 {
		car.Images = nil
	}
	car.Images = append(car.Images, patch.Uploads...)
	if patch.IsAvailable != nil {
		car.IsAvailable = *patch.IsAvailable
	}
	if err := s.validate(car); err != nil {
		return nil, err
	}
	if err := s.cars.Update(ctx, car); err != nil {
		return nil, storeErr(err, msgCarNotFound)
	}
	if imagesChanged {
		s.removeImages(dropped(oldImages, car.Images))
	}
	return car, nil
}

// Delete removes a listing of callerID together with its finished requests.
// A listing with Pending or Approved requests cannot be deleted.
func (s *ListingService) Delete(ctx context.Context, id, callerID string) error {
	car, err := s.owned(ctx, id, callerID, "delete")
	if err != nil {
		return err
	}
	if err := s.cars.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return apperr.Conflictf("cannot delete a car with pending or approved test drive requests")
		}
		return storeErr(err, msgCarNotFound)
	}
	s.removeImages(car.Images)
	s.log.Info("listing deleted", zap.String("car_id", id), zap.String("owner_id", callerID))
	return nil
}

// ToggleAvailability flips the availability flag of a listing of callerID.
func (s *ListingService) ToggleAvailability(ctx context.Context, id, callerID string) (*model.Car, error) {
	car, err := s.owned(ctx, id, callerID, "update")
	if err != nil {
		return nil, err
	}
	car.IsAvailable = !car.IsAvailable
	if err := s.cars.SetAvailability(ctx, id, car.IsAvailable); err != nil {
		return nil, storeErr(err, msgCarNotFound)
	}
	return s.GetByID(ctx, id)
}

func (s *ListingService) owned(ctx context.Context, id, callerID, action string) (*model.Car, error) {
	car, err := s.cars.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, msgCarNotFound)
	}
	if car.OwnerID != callerID {
		return nil, apperr.Forbiddenf("you can only %s your own cars", action)
	}
	return car, nil
}

func (s *ListingService) validate(c *model.Car) error {
	switch {
	case c.Make == "":
		return apperr.InvalidInputf("make is required")
	case c.Model == "":
		return apperr.InvalidInputf("model is required")
	case c.Location == "":
		return apperr.InvalidInputf("location is required")
	}
	if maxYear := s.now().Year() + 1; c.Year < 1900 || c.Year > maxYear {
		return apperr.InvalidInputf("year must be between 1900 and %d", maxYear)
	}
	if c.Price < 0 {
		return apperr.InvalidInputf("price cannot be negative")
	}
	if c.Mileage < 0 {
		return apperr.InvalidInputf("mileage cannot be negative")
	}
	if !c.Transmission.Valid() {
		return apperr.InvalidInputf("transmission must be one of Automatic, Manual, SemiAutomatic")
	}
	if !c.FuelType.Valid() {
		return apperr.InvalidInputf("fuel type must be one of Petrol, Diesel, Electric, Hybrid")
	}
	return nil
}

// checkRefs rejects stored-image refs in refs unless the listing already
// has them. Stored files may only be attached through an upload.
func (s *ListingService) checkRefs(refs, current []string) error {
	if s.images == nil {
		return nil
	}
	have := make(map[string]bool, len(current))
	for _, c := range current {
		have[c] = true
	}
	for _, ref := range refs {
		if s.images.Managed(ref) && !have[ref] {
			return apperr.InvalidInputf("images may only reference files uploaded with this listing")
		}
	}
	return nil
}

func (s *ListingService) removeImages(refs []string) {
	if s.images == nil {
		return
	}
	for _, ref := range refs {
		if err := s.images.Delete(ref); err != nil {
			s.log.Warn("failed to remove listing image", zap.String("ref", ref), zap.Error(err))
		}
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

// dropped returns the entries of before that are missing from after.
func dropped(before, after []string) []string {
	keep := make(map[string]bool, len(after))
	for _, a := range after {
		keep[a] = true
	}
	var out []string
	for _, b := range before {
		if !keep[b] {
			out = append(out, b)
		}
	}
	return out
}
