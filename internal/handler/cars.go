package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/testdrive-marketplace/internal/apperr"
	"github.com/iliyamo/testdrive-marketplace/internal/model"
	"github.com/iliyamo/testdrive-marketplace/internal/service"
	"github.com/iliyamo/testdrive-marketplace/internal/storage"
)

// imageField is the multipart field carrying an optional listing image.
const imageField = "image"

// CarHandler serves the listing endpoints.
type CarHandler struct {
	Listings *service.ListingService
	Images   storage.Images
	Log      *zap.Logger
}

func NewCarHandler(listings *service.ListingService, images storage.Images, log *zap.Logger) *CarHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CarHandler{Listings: listings, Images: images, Log: log}
}

// carReq is accepted as JSON or as multipart form fields.
type carReq struct {
	Make         string   `json:"make" form:"make" validate:"required,max=100"`
	Model        string   `json:"model" form:"model" validate:"required,max=100"`
	Year         int      `json:"year" form:"year" validate:"required,min=1900"`
	Color        string   `json:"color" form:"color" validate:"max=50"`
	Price        float64  `json:"price" form:"price" validate:"min=0"`
	Mileage      int      `json:"mileage" form:"mileage" validate:"min=0"`
	Transmission string   `json:"transmission" form:"transmission" validate:"required,oneof=Automatic Manual SemiAutomatic"`
	FuelType     string   `json:"fuelType" form:"fuelType" validate:"required,oneof=Petrol Diesel Electric Hybrid"`
	Description  string   `json:"description" form:"description" validate:"max=5000"`
	Location     string   `json:"location" form:"location" validate:"required,max=200"`
	Images       []string `json:"images" form:"images" validate:"max=10,dive,max=500"`
}

// carPatchReq is the JSON body of an update. Multipart updates are read
// field by field in patchFromForm.
type carPatchReq struct {
	Make         *string   `json:"make" validate:"omitempty,min=1,max=100"`
	Model        *string   `json:"model" validate:"omitempty,min=1,max=100"`
	Year         *int      `json:"year" validate:"omitempty,min=1900"`
	Color        *string   `json:"color" validate:"omitempty,max=50"`
	Price        *float64  `json:"price" validate:"omitempty,min=0"`
	Mileage      *int      `json:"mileage" validate:"omitempty,min=0"`
	Transmission *string   `json:"transmission" validate:"omitempty,oneof=Automatic Manual SemiAutomatic"`
	FuelType     *string   `json:"fuelType" validate:"omitempty,oneof=Petrol Diesel Electric Hybrid"`
	Description  *string   `json:"description" validate:"omitempty,max=5000"`
	Location     *string   `json:"location" validate:"omitempty,min=1,max=200"`
	Images       *[]string `json:"images" validate:"omitempty,max=10,dive,max=500"`
	IsAvailable  *bool     `json:"isAvailable"`
}

func (r carPatchReq) patch() service.CarPatch {
	p := service.CarPatch{
		Make: r.Make, Model: r.Model, Year: r.Year, Color: r.Color, Price: r.Price,
		Mileage: r.Mileage, Description: r.Description, Location: r.Location,
		Images: r.Images, IsAvailable: r.IsAvailable,
	}
	if r.Transmission != nil {
		t := model.Transmission(*r.Transmission)
		p.Transmission = &t
	}
	if r.FuelType != nil {
		f := model.FuelType(*r.FuelType)
		p.FuelType = &f
	}
	return p
}

// List returns available listings; ?keyword= filters them.
func (h *CarHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	cars, err := h.Listings.List(ctx, c.QueryParam("keyword"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cars)
}

// Create stores a new listing of the caller. A multipart request may carry
// one image in the "image" field.
func (h *CarHandler) Create(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	var req carReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ref, err := h.saveUpload(c)
	if err != nil {
		return err
	}
	var uploads []string
	if ref != "" {
		uploads = []string{ref}
	}

	ctx, cancel := withTimeout(c)
	defer cancel()
	car, err := h.Listings.Create(ctx, u.ID, service.CarInput{
		Make:         req.Make,
		Model:        req.Model,
		Year:         req.Year,
		Color:        req.Color,
		Price:        req.Price,
		Mileage:      req.Mileage,
		Transmission: model.Transmission(req.Transmission),
		FuelType:     model.FuelType(req.FuelType),
		Description:  req.Description,
		Location:     req.Location,
		Images:       req.Images,
		Uploads:      uploads,
	})
	if err != nil {
		h.discard(ref)
		return err
	}
	return c.JSON(http.StatusCreated, car)
}

// MyListings returns all listings of the caller.
func (h *CarHandler) MyListings(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	cars, err := h.Listings.ListByOwner(ctx, u.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cars)
}

// Get returns one listing.
func (h *CarHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	car, err := h.Listings.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, car)
}

// Update changes a listing of the caller. A multipart request with an image
// replaces the listing's images with the upload.
func (h *CarHandler) Update(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var patch service.CarPatch
	if isMultipart(c) {
		form, err := c.FormParams()
		if err != nil {
			return apperr.InvalidInputf("invalid form body")
		}
		if patch, err = patchFromForm(form); err != nil {
			return err
		}
	} else {
		var req carPatchReq
		if err := bind(c, &req); err != nil {
			return err
		}
		patch = req.patch()
	}

	ref, err := h.saveUpload(c)
	if err != nil {
		return err
	}
	if ref != "" {
		patch.Uploads = []string{ref}
	}

	ctx, cancel := withTimeout(c)
	defer cancel()
	car, err := h.Listings.Update(ctx, id, u.ID, patch)
	if err != nil {
		h.discard(ref)
		return err
	}
	return c.JSON(http.StatusOK, car)
}

// Delete removes a listing of the caller.
func (h *CarHandler) Delete(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Listings.Delete(ctx, id, u.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "car deleted", "id": id})
}

// ToggleAvailability flips the availability of a listing of the caller.
func (h *CarHandler) ToggleAvailability(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	car, err := h.Listings.ToggleAvailability(ctx, id, u.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, car)
}

// saveUpload stores the optional image of a multipart request and returns
// its reference, or "" when there is none.
func (h *CarHandler) saveUpload(c echo.Context) (string, error) {
	if !isMultipart(c) || h.Images == nil {
		return "", nil
	}
	fh, err := c.FormFile(imageField)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", apperr.InvalidInputf("invalid image upload")
	}
	ref, err := h.store(fh)
	if errors.Is(err, storage.ErrUnsupportedType) {
		return "", apperr.InvalidInputf("image must be a jpg, png, webp or gif file")
	}
	if err != nil {
		return "", apperr.Wrap(err, "store image failed")
	}
	return ref, nil
}

func (h *CarHandler) store(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	return h.Images.Save(fh.Filename, f)
}

func (h *CarHandler) discard(ref string) {
	if ref == "" {
		return
	}
	if err := h.Images.Delete(ref); err != nil {
		h.Log.Warn("failed to discard upload", zap.String("ref", ref), zap.Error(err))
	}
}

func isMultipart(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

// patchFromForm builds a patch from the form fields that are present.
func patchFromForm(form url.Values) (service.CarPatch, error) {
	var p service.CarPatch
	str := func(key string) *string {
		if _, ok := form[key]; !ok {
			return nil
		}
		v := form.Get(key)
		return &v
	}
	p.Make, p.Model, p.Color = str("make"), str("model"), str("color")
	p.Description, p.Location = str("description"), str("location")

	if v := str("year"); v != nil {
		n, err := strconv.Atoi(strings.TrimSpace(*v))
		if err != nil {
			return p, apperr.InvalidInputf("year must be a number")
		}
		p.Year = &n
	}
	if v := str("mileage"); v != nil {
		n, err := strconv.Atoi(strings.TrimSpace(*v))
		if err != nil {
			return p, apperr.InvalidInputf("mileage must be a number")
		}
		p.Mileage = &n
	}
	if v := str("price"); v != nil {
		f, err := strconv.ParseFloat(strings.TrimSpace(*v), 64)
		if err != nil {
			return p, apperr.InvalidInputf("price must be a number")
		}
		p.Price = &f
	}
	if v := str("isAvailable"); v != nil {
		b, err := strconv.ParseBool(strings.TrimSpace(*v))
		if err != nil {
			return p, apperr.InvalidInputf("isAvailable must be true or false")
		}
		p.IsAvailable = &b
	}
	if v := str("transmission"); v != nil {
		t := model.Transmission(*v)
		p.Transmission = &t
	}
	if v := str("fuelType"); v != nil {
		f := model.FuelType(*v)
		p.FuelType = &f
	}
	return p, nil
}
