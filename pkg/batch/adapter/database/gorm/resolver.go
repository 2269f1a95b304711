package gorm

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/fx"

	"github.com/tigerroll/orgdigestor/pkg/batch/adapter/database"
	coreConfig "github.com/tigerroll/orgdigestor/pkg/batch/core/config"
	"github.com/tigerroll/orgdigestor/pkg/batch/support/util/configbinder"
)

// ConnectionResolver picks the provider matching the configured type of a named database.
type ConnectionResolver struct {
	providers map[string]database.DBProvider
	configs   map[string]interface{}
}

// ResolverParams collects every provider in the db_providers group.
type ResolverParams struct {
	fx.In
	Config    *coreConfig.Config
	Providers []database.DBProvider `group:"db_providers"`
}

// NewConnectionResolver indexes the grouped providers by type.
func NewConnectionResolver(p ResolverParams) *ConnectionResolver {
	return NewConnectionResolverFor(p.Config.Digestor.DatabaseConfigs, p.Providers...)
}

// NewConnectionResolverFor builds a resolver over explicit configs and providers.
func NewConnectionResolverFor(configs map[string]interface{}, providers ...database.DBProvider) *ConnectionResolver {
	byType := make(map[string]database.DBProvider, len(providers))
	for _, p := range providers {
		byType[p.Type()] = p
	}
	return &ConnectionResolver{providers: byType, configs: configs}
}

// ConfiguredType returns the "type" of the named database config.
func (r *ConnectionResolver) ConfiguredType(name string) (string, error) {
	var head struct {
		Type string `yaml:"type"`
	}
	if err := configbinder.BindNamed(r.configs, name, &head); err != nil {
		return "", fmt.Errorf("database connection '%s': %w", name, err)
	}
	return head.Type, nil
}

// Resolve returns the GORM connection configured under name.
func (r *ConnectionResolver) Resolve(name string) (GormConnection, error) {
	dbType, err := r.ConfiguredType(name)
	if err != nil {
		return nil, err
	}
	provider, ok := r.providers[dbType]
	if !ok {
		return nil, fmt.Errorf("no database provider for type '%s' (connection '%s')", dbType, name)
	}
	conn, err := provider.GetConnection(name)
	if err != nil {
		return nil, err
	}
	gc, ok := conn.(GormConnection)
	if !ok {
		return nil, fmt.Errorf("database connection '%s' does not expose a GORM handle", name)
	}
	return gc, nil
}

// CloseAll closes every provider.
func (r *ConnectionResolver) CloseAll() error {
	var result *multierror.Error
	for _, p := range r.providers {
		if err := p.CloseAll(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
