package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Vehicle categories accepted by the catalog.
const (
	CategorySedan   = "sedan"
	CategorySUV     = "suv"
	CategoryEconomy = "economy"
)

// ValidCategory reports whether c is one of the catalog categories.
func ValidCategory(c string) bool {
	switch c {
	case CategorySedan, CategorySUV, CategoryEconomy:
		return true
	}
	return false
}

// Vehicle is a rentable car in the `vehicles` table.  DailyRate is a
// non-negative currency amount stored as DECIMAL(12,2).  ImageURL is the
// legacy single-image column; the gallery lives in vehicle_images.
//
// Fields:
//
//	ID          – primary key identifier.
//	Make        – manufacturer, e.g. Toyota.
//	Model       – model name, e.g. Corolla.
//	Year        – model year (1900-2100).
//	Category    – sedan, suv or economy.
//	DailyRate   – price per whole rental day.
//	Description – free text shown on the detail page.
//	ImageURL    – optional cover image.
//	IsAvailable – hidden from the catalog and not bookable when false.
//	CreatedAt   – timestamp of creation.
//	UpdatedAt   – timestamp of last update.
type Vehicle struct {
	ID          uint64          // vehicles.id
	Make        string          // vehicles.make
	Model       string          // vehicles.model
	Year        int             // vehicles.year
	Category    string          // vehicles.category
	DailyRate   decimal.Decimal // vehicles.daily_rate
	Description string          // vehicles.description
	ImageURL    string          // vehicles.image_url
	IsAvailable bool            // vehicles.is_available
	CreatedAt   time.Time       // vehicles.created_at
	UpdatedAt   time.Time       // vehicles.updated_at
}

// VehicleImage is one entry of a vehicle's ordered gallery.  Rows are
// removed together with their vehicle (ON DELETE CASCADE).
type VehicleImage struct {
	ID        uint64    // vehicle_images.id
	VehicleID uint64    // vehicle_images.vehicle_id
	URL       string    // vehicle_images.url
	IsPrimary bool      // vehicle_images.is_primary
	Position  int       // vehicle_images.position
	CreatedAt time.Time // vehicle_images.created_at
}

// PrimaryImage returns the image marked primary, or the first inserted
// image when none is marked.  ok is false for an empty gallery.
func PrimaryImage(images []VehicleImage) (img VehicleImage, ok bool) {
	if len(images) == 0 {
		return VehicleImage{}, false
	}
	first := images[0]
	for _, im := range images {
		if im.IsPrimary {
			return im, true
		}
		if im.ID < first.ID {
			first = im
		}
	}
	return first, true
}
