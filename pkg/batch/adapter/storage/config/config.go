package config

// StorageConfig holds the settings of one named storage connection.
type StorageConfig struct {
	// Type selects the backend: "local" or "gcs".
	Type string `yaml:"type"`
	// BucketName is the default bucket. For the local backend it is a sub-directory of BaseDir.
	BucketName string `yaml:"bucket_name"`
	// CredentialsFile is a service account key file for GCS; empty uses application default credentials.
	CredentialsFile string `yaml:"credentials_file"`
	// Endpoint overrides the GCS endpoint (emulators).
	Endpoint string `yaml:"endpoint"`
	// BaseDir is the root directory of the local backend.
	BaseDir string `yaml:"base_dir"`
}
