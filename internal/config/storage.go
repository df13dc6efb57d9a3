package config

// StorageConfig selects where uploaded avatars and generated reports live.
// Driver "local" writes below LocalDir and serves files at /uploads; "s3"
// targets any S3-compatible endpoint (AWS or MinIO).
type StorageConfig struct {
	Driver      string
	LocalDir    string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string
}

func LoadStorageConfig() StorageConfig {
	return StorageConfig{
		Driver:      envStr("STORAGE_DRIVER", "local"),
		LocalDir:    envStr("UPLOADS_DIR", "uploads"),
		S3Bucket:    envStr("S3_BUCKET", ""),
		S3Region:    envStr("S3_REGION", "us-east-1"),
		S3Endpoint:  envStr("S3_ENDPOINT", ""),
		S3AccessKey: envStr("S3_ACCESS_KEY", ""),
		S3SecretKey: envStr("S3_SECRET_KEY", ""),
		S3PublicURL: envStr("S3_PUBLIC_URL", ""),
	}
}
