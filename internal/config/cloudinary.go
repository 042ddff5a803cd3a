package config

// CloudinaryConfig holds credentials for vehicle image uploads.  Uploads are
// disabled when any credential is missing.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// LoadCloudinaryConfig reads the CLOUDINARY_* variables.
func LoadCloudinaryConfig() CloudinaryConfig {
	return CloudinaryConfig{
		CloudName: envStr("CLOUDINARY_CLOUD_NAME", ""),
		APIKey:    envStr("CLOUDINARY_API_KEY", ""),
		APISecret: envStr("CLOUDINARY_API_SECRET", ""),
		Folder:    envStr("CLOUDINARY_FOLDER", "vehicles"),
	}
}

// Enabled reports whether all credentials are present.
func (c CloudinaryConfig) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}
