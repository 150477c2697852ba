// Package bus carries catalog-changed events between cropadvisor nodes so
// each one can drop its cached catalog after an edit or reload.
package bus

import (
	"fmt"

	"github.com/opensource-finance/cropadvisor/internal/domain"
)

// Transports accepted in eventbus.type.
const (
	// TypeChannel keeps events inside one process.
	TypeChannel = "channel"
	// TypeNATS shares events between replicas serving the same catalog.
	TypeNATS = "nats"
)

// New opens the configured transport.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case TypeChannel:
		return NewChannelBus(cfg.ChannelBufferSize), nil
	case TypeNATS:
		b, err := NewNATSBus(cfg)
		if err != nil {
			return nil, fmt.Errorf("catalog event bus: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported event bus type %q (want %s or %s)", cfg.Type, TypeChannel, TypeNATS)
	}
}
