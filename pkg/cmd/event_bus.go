// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/skillhub/flowcore/pkg/channels/gochannel"
	"github.com/skillhub/flowcore/pkg/channels/kafka"
	"github.com/skillhub/flowcore/pkg/eventbus"
)

// EventBusConfig selects and configures the event transport.
type EventBusConfig struct {
	Provider     string // "gochannel" or "kafka"
	KafkaBrokers string // comma separated
	ServiceName  string
	OTELEnabled  bool
}

func NewEventBus(config EventBusConfig, logger *slog.Logger) (*eventbus.WatermillEventBus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch config.Provider {
	case "", "gochannel":
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger), nil
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, kafka.ParseBrokers(config.KafkaBrokers), config.ServiceName, config.OTELEnabled)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %s", config.Provider)
	}
}
