package gcs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	storageConfig "github.com/tigerroll/orgdigestor/pkg/batch/adapter/storage/config"
	coreConfig "github.com/tigerroll/orgdigestor/pkg/batch/core/config"
)

func TestNewGCSAdapterRequiresBucket(t *testing.T) {
	_, err := NewGCSAdapter(context.Background(), storageConfig.StorageConfig{Type: ProviderType}, "chunks")
	assert.ErrorContains(t, err, "bucket_name must be specified")
}

func TestProviderRejectsOtherTypes(t *testing.T) {
	cfg := coreConfig.NewConfig()
	cfg.Digestor.StorageConfigs["chunks"] = map[string]interface{}{"type": "local", "base_dir": "/tmp"}

	p := NewGCSProvider(cfg)
	assert.Equal(t, ProviderType, p.Type())
	_, err := p.GetConnection("chunks")
	assert.ErrorContains(t, err, "type mismatch")
	assert.NoError(t, p.CloseAll())
}
