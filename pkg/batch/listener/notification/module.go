package notification

import (
	"fmt"

	"go.uber.org/fx"

	"github.com/tigerroll/orgdigestor/pkg/batch/core/config"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/ports"
)

// NewNotifier returns the notifier selected by notification.type.
func NewNotifier(cfg *config.Config) (ports.Notifier, error) {
	switch cfg.Digestor.Notification.Type {
	case "", "log":
		return NewLogNotifier(), nil
	case "none":
		return NoneNotifier{}, nil
	default:
		return nil, fmt.Errorf("unknown notification type '%s'", cfg.Digestor.Notification.Type)
	}
}

// Module provides the configured ports.Notifier.
var Module = fx.Options(
	fx.Provide(NewNotifier),
)
