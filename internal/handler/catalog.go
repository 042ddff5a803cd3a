package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/alanwtom/carmodel/internal/model"
	"github.com/alanwtom/carmodel/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// VehicleReader is the read side of the vehicle repository.
type VehicleReader interface {
	GetByID(ctx context.Context, id uint64) (*model.Vehicle, error)
	Search(ctx context.Context, q repository.VehicleSearchQuery) ([]model.Vehicle, int64, error)
}

// ImageLister lists a vehicle's gallery.
type ImageLister interface {
	ListByVehicle(ctx context.Context, vehicleID uint64) ([]model.VehicleImage, error)
}

// CatalogHandler serves the public vehicle catalog.
type CatalogHandler struct {
	Vehicles VehicleReader
	Images   ImageLister
}

func NewCatalogHandler(v VehicleReader, i ImageLister) *CatalogHandler {
	if v == nil || i == nil {
		panic("nil dependency passed to NewCatalogHandler")
	}
	return &CatalogHandler{Vehicles: v, Images: i}
}

type vehicleResp struct {
	ID          uint64    `json:"id"`
	Make        string    `json:"make"`
	Model       string    `json:"model"`
	Year        int       `json:"year"`
	Category    string    `json:"category"`
	DailyRate   string    `json:"daily_rate"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
}

type imageResp struct {
	ID        uint64 `json:"id"`
	URL       string `json:"url"`
	IsPrimary bool   `json:"is_primary"`
	Position  int    `json:"position"`
}

type pageResp struct {
	Items    []vehicleResp `json:"items"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Total    int64         `json:"total"`
}

func toVehicleResp(v model.Vehicle) vehicleResp {
	return vehicleResp{
		ID:          v.ID,
		Make:        v.Make,
		Model:       v.Model,
		Year:        v.Year,
		Category:    v.Category,
		DailyRate:   v.DailyRate.StringFixed(2),
		Description: v.Description,
		ImageURL:    v.ImageURL,
		IsAvailable: v.IsAvailable,
		CreatedAt:   v.CreatedAt,
	}
}

func toImageResp(im model.VehicleImage) imageResp {
	return imageResp{ID: im.ID, URL: im.URL, IsPrimary: im.IsPrimary, Position: im.Position}
}

// searchQuery reads category, sort and paging from the query string.
func searchQuery(c echo.Context, availableOnly bool) repository.VehicleSearchQuery {
	page := queryInt(c, "page", 1)
	if page < 1 {
		page = 1
	}
	size := queryInt(c, "page_size", defaultPageSize)
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return repository.VehicleSearchQuery{
		Category:      strings.ToLower(strings.TrimSpace(c.QueryParam("category"))),
		Sort:          c.QueryParam("sort"),
		AvailableOnly: availableOnly,
		Page:          page,
		PageSize:      size,
	}
}

func listVehicles(c echo.Context, vehicles VehicleReader, availableOnly bool) error {
	q := searchQuery(c, availableOnly)
	if q.Category != "" && !model.ValidCategory(q.Category) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown category"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	list, total, err := vehicles.Search(ctx, q)
	if err != nil {
		return writeError(c, err)
	}
	out := pageResp{Items: make([]vehicleResp, 0, len(list)), Page: q.Page, PageSize: q.PageSize, Total: total}
	for _, v := range list {
		out.Items = append(out.Items, toVehicleResp(v))
	}
	return c.JSON(http.StatusOK, out)
}

// ListVehicles GET /v1/vehicles lists the bookable vehicles.
func (h *CatalogHandler) ListVehicles(c echo.Context) error {
	return listVehicles(c, h.Vehicles, true)
}

// GetVehicle GET /v1/vehicles/:id returns one bookable vehicle with its gallery.
func (h *CatalogHandler) GetVehicle(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid vehicle id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	v, err := h.Vehicles.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	if !v.IsAvailable {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "vehicle not found", "code": "not_found"})
	}
	images, err := h.Images.ListByVehicle(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	resp := echo.Map{"vehicle": toVehicleResp(*v)}
	gallery := make([]imageResp, 0, len(images))
	for _, im := range images {
		gallery = append(gallery, toImageResp(im))
	}
	resp["images"] = gallery
	if p, ok := model.PrimaryImage(images); ok {
		resp["primary_image"] = toImageResp(p)
	}
	return c.JSON(http.StatusOK, resp)
}
