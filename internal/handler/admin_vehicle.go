package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/alanwtom/carmodel/internal/imagestore"
	"github.com/alanwtom/carmodel/internal/model"
)

// maxUploadBytes caps a multipart vehicle photo.
const maxUploadBytes = 10 << 20

// VehicleStore is the vehicle repository as used by administrators.
type VehicleStore interface {
	VehicleReader
	Create(ctx context.Context, v *model.Vehicle) error
	Update(ctx context.Context, v *model.Vehicle) error
	Delete(ctx context.Context, id uint64) error
}

// ImageStore manages a vehicle's gallery rows.
type ImageStore interface {
	ImageLister
	Add(ctx context.Context, vehicleID uint64, url string, primary bool) (*model.VehicleImage, error)
	SetPrimary(ctx context.Context, vehicleID, imageID uint64) error
	Delete(ctx context.Context, vehicleID, imageID uint64) error
}

// AdminVehicleHandler serves the catalog management endpoints.
type AdminVehicleHandler struct {
	Vehicles VehicleStore
	Images   ImageStore
	Uploader imagestore.Uploader
}

func NewAdminVehicleHandler(v VehicleStore, i ImageStore, up imagestore.Uploader) *AdminVehicleHandler {
	if v == nil || i == nil {
		panic("nil dependency passed to NewAdminVehicleHandler")
	}
	if up == nil {
		up = imagestore.Disabled{}
	}
	return &AdminVehicleHandler{Vehicles: v, Images: i, Uploader: up}
}

type vehicleReq struct {
	Make        string          `json:"make" validate:"required,max=50"`
	Model       string          `json:"model" validate:"required,max=50"`
	Year        int             `json:"year" validate:"required,min=1900,max=2100"`
	Category    string          `json:"category" validate:"required,oneof=sedan suv economy"`
	DailyRate   decimal.Decimal `json:"daily_rate"`
	Description string          `json:"description" validate:"max=2000"`
	ImageURL    string          `json:"image_url" validate:"omitempty,url,max=500"`
	IsAvailable *bool           `json:"is_available"`
}

type imageReq struct {
	URL     string `json:"url" validate:"required,url,max=500"`
	Primary bool   `json:"primary"`
}

// apply copies the request onto v.  Availability is only touched when sent.
func (r vehicleReq) apply(v *model.Vehicle) {
	v.Make = strings.TrimSpace(r.Make)
	v.Model = strings.TrimSpace(r.Model)
	v.Year = r.Year
	v.Category = r.Category
	v.DailyRate = r.DailyRate.Round(2)
	v.Description = r.Description
	v.ImageURL = r.ImageURL
	if r.IsAvailable != nil {
		v.IsAvailable = *r.IsAvailable
	}
}

func bindVehicle(c echo.Context) (*vehicleReq, error) {
	var req vehicleReq
	if err := c.Bind(&req); err != nil {
		return nil, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Category = strings.ToLower(strings.TrimSpace(req.Category))
	if err := c.Validate(&req); err != nil {
		return nil, c.JSON(http.StatusBadRequest, echo.Map{"error": errorMessage(err)})
	}
	if req.DailyRate.IsNegative() {
		return nil, c.JSON(http.StatusBadRequest, echo.Map{"error": "daily_rate must not be negative"})
	}
	return &req, nil
}

// List GET /v1/admin/vehicles lists every vehicle, unavailable ones included.
func (h *AdminVehicleHandler) List(c echo.Context) error {
	return listVehicles(c, h.Vehicles, false)
}

// Create POST /v1/admin/vehicles adds a vehicle to the catalog.
func (h *AdminVehicleHandler) Create(c echo.Context) error {
	req, err := bindVehicle(c)
	if req == nil {
		return err
	}
	v := model.Vehicle{IsAvailable: true}
	req.apply(&v)

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Vehicles.Create(ctx, &v); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toVehicleResp(v))
}

// Update PUT /v1/admin/vehicles/:id replaces a vehicle's editable fields.
func (h *AdminVehicleHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid vehicle id"})
	}
	req, err := bindVehicle(c)
	if req == nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	v, err := h.Vehicles.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	req.apply(v)
	if err := h.Vehicles.Update(ctx, v); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toVehicleResp(*v))
}

// Delete DELETE /v1/admin/vehicles/:id removes a vehicle and its images.
// Refused while the vehicle has active bookings.
func (h *AdminVehicleHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid vehicle id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Vehicles.Delete(ctx, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AddImage POST /v1/admin/vehicles/:id/images appends an image by URL.
func (h *AdminVehicleHandler) AddImage(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid vehicle id"})
	}
	var req imageReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	im, err := h.Images.Add(ctx, id, req.URL, req.Primary)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toImageResp(*im))
}

// UploadImage POST /v1/admin/vehicles/:id/images/upload stores a multipart
// "image" file through the image store and appends it to the gallery.
func (h *AdminVehicleHandler) UploadImage(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid vehicle id"})
	}
	fh, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "image file required"})
	}
	if fh.Size > maxUploadBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "image too large"})
	}
	if ct := fh.Header.Get(echo.HeaderContentType); ct != "" && !strings.HasPrefix(ct, "image/") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file must be an image"})
	}

	ctx := c.Request().Context()
	if _, err := h.Vehicles.GetByID(ctx, id); err != nil {
		return writeError(c, err)
	}
	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable image"})
	}
	defer f.Close()

	url, err := h.Uploader.Upload(ctx, f, fmt.Sprintf("vehicle-%d-%s", id, uuid.NewString()))
	if err != nil {
		if errors.Is(err, imagestore.ErrDisabled) {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": err.Error()})
		}
		c.Logger().Errorf("upload vehicle %d image: %v", id, err)
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "image upload failed"})
	}
	im, err := h.Images.Add(ctx, id, url, c.FormValue("primary") == "true")
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toImageResp(*im))
}

// DeleteImage DELETE /v1/admin/vehicles/:id/images/:image_id
func (h *AdminVehicleHandler) DeleteImage(c echo.Context) error {
	id, ok1 := parseID(c, "id")
	imageID, ok2 := parseID(c, "image_id")
	if !ok1 || !ok2 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Images.Delete(ctx, id, imageID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SetPrimaryImage PUT /v1/admin/vehicles/:id/images/:image_id/primary
func (h *AdminVehicleHandler) SetPrimaryImage(c echo.Context) error {
	id, ok1 := parseID(c, "id")
	imageID, ok2 := parseID(c, "image_id")
	if !ok1 || !ok2 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Images.SetPrimary(ctx, id, imageID); err != nil {
		return writeError(c, err)
	}
	images, err := h.Images.ListByVehicle(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]imageResp, 0, len(images))
	for _, im := range images {
		out = append(out, toImageResp(im))
	}
	return c.JSON(http.StatusOK, echo.Map{"images": out})
}
