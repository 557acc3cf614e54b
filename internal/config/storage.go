package config

// StorageConfig points at an S3-compatible bucket (AWS S3 or MinIO) holding
// user avatars.  An empty Bucket disables avatar uploads.
type StorageConfig struct {
	Endpoint      string // custom endpoint for MinIO and friends; empty means AWS
	Region        string
	AccessKey     string
	SecretKey     string
	Bucket        string
	PublicBaseURL string // base URL objects are served from; defaults to Endpoint/Bucket
	PathStyle     bool
}

func LoadStorageConfig() StorageConfig {
	return StorageConfig{
		Endpoint:      envStr("S3_ENDPOINT", ""),
		Region:        envStr("S3_REGION", "us-east-1"),
		AccessKey:     envStr("S3_ACCESS_KEY", ""),
		SecretKey:     envStr("S3_SECRET_KEY", ""),
		Bucket:        envStr("S3_BUCKET", ""),
		PublicBaseURL: envStr("S3_PUBLIC_BASE_URL", ""),
		PathStyle:     envBool("S3_PATH_STYLE", true),
	}
}

// Enabled reports whether avatar storage is configured.
func (s StorageConfig) Enabled() bool { return s.Bucket != "" }
