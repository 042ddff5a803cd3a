// Package imagestore uploads vehicle photos to Cloudinary.
package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	cldconfig "github.com/cloudinary/cloudinary-go/v2/config"

	"github.com/alanwtom/carmodel/internal/config"
)

// ErrDisabled is returned when uploads are not configured.
var ErrDisabled = errors.New("image upload is not configured")

// Uploader stores an image and returns its public HTTPS URL.
type Uploader interface {
	Upload(ctx context.Context, file io.Reader, publicID string) (string, error)
}

// Delivery transformation applied to every uploaded vehicle photo.
const vehicleEager = "q_auto,f_auto,w_1200,c_limit"

var eagerAsync = false

// Cloudinary is the Cloudinary-backed Uploader.
type Cloudinary struct {
	api    *uploader.API
	folder string
}

// New builds an Uploader from cfg, or returns Disabled when credentials
// are missing.
func New(cfg config.CloudinaryConfig) (Uploader, error) {
	if !cfg.Enabled() {
		return Disabled{}, nil
	}
	c, err := cldconfig.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, err
	}
	api, err := uploader.NewWithConfiguration(c)
	if err != nil {
		return nil, err
	}
	return &Cloudinary{api: api, folder: cfg.Folder}, nil
}

// Upload implements Uploader.
func (c *Cloudinary) Upload(ctx context.Context, file io.Reader, publicID string) (string, error) {
	res, err := c.api.Upload(ctx, file, uploader.UploadParams{
		Folder:     c.folder,
		PublicID:   publicID,
		Eager:      vehicleEager,
		EagerAsync: &eagerAsync,
	})
	if err != nil {
		return "", err
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary: %s", res.Error.Message)
	}
	if len(res.Eager) > 0 && res.Eager[0].SecureURL != "" {
		return res.Eager[0].SecureURL, nil
	}
	return res.SecureURL, nil
}

// Disabled rejects every upload; handlers then only accept image URLs.
type Disabled struct{}

// Upload implements Uploader.
func (Disabled) Upload(context.Context, io.Reader, string) (string, error) {
	return "", ErrDisabled
}
