package configbinder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type poolSettings struct {
	MaxOpenConns int `yaml:"max_open_conns"`
}

type dbSettings struct {
	Type     string       `yaml:"type"`
	Port     int          `yaml:"port"`
	ReadOnly bool         `yaml:"read_only"`
	Pool     poolSettings `yaml:"pool"`
}

func TestBindNamedWeaklyTyped(t *testing.T) {
	configs := map[string]interface{}{
		"organizations": map[string]interface{}{
			"type":      "postgres",
			"port":      "5432",
			"read_only": "true",
			"pool":      map[string]interface{}{"max_open_conns": 4},
		},
	}

	var got dbSettings
	require.NoError(t, BindNamed(configs, "organizations", &got))
	assert.Equal(t, dbSettings{Type: "postgres", Port: 5432, ReadOnly: true, Pool: poolSettings{MaxOpenConns: 4}}, got)
}

func TestBindNamedMissing(t *testing.T) {
	var got dbSettings
	err := BindNamed(map[string]interface{}{}, "nope", &got)
	assert.ErrorContains(t, err, "no configuration named 'nope'")
}
