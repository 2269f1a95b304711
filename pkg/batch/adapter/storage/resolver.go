package storage

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/fx"

	coreConfig "github.com/tigerroll/orgdigestor/pkg/batch/core/config"
	"github.com/tigerroll/orgdigestor/pkg/batch/support/util/configbinder"
)

// ConnectionResolver picks the provider matching the configured type of a named connection.
type ConnectionResolver struct {
	providers map[string]StorageProvider
	configs   map[string]interface{}
}

// ResolverParams collects every provider registered in the "storage_providers" group.
type ResolverParams struct {
	fx.In
	Config    *coreConfig.Config
	Providers []StorageProvider `group:"storage_providers"`
}

// NewConnectionResolver indexes providers by type.
func NewConnectionResolver(p ResolverParams) *ConnectionResolver {
	return NewConnectionResolverFor(p.Config.Digestor.StorageConfigs, p.Providers...)
}

// NewConnectionResolverFor builds a resolver over explicit configs and providers.
func NewConnectionResolverFor(configs map[string]interface{}, providers ...StorageProvider) *ConnectionResolver {
	byType := make(map[string]StorageProvider, len(providers))
	for _, p := range providers {
		byType[p.Type()] = p
	}
	return &ConnectionResolver{providers: byType, configs: configs}
}

// Resolve returns the connection configured under name.
func (r *ConnectionResolver) Resolve(name string) (StorageConnection, error) {
	var head struct {
		Type string `yaml:"type"`
	}
	if err := configbinder.BindNamed(r.configs, name, &head); err != nil {
		return nil, fmt.Errorf("storage connection '%s': %w", name, err)
	}
	provider, ok := r.providers[head.Type]
	if !ok {
		return nil, fmt.Errorf("no storage provider for type '%s' (connection '%s')", head.Type, name)
	}
	return provider.GetConnection(name)
}

// CloseAll closes every provider and reports all failures together.
func (r *ConnectionResolver) CloseAll() error {
	var result *multierror.Error
	for _, p := range r.providers {
		if err := p.CloseAll(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
