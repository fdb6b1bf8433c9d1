package backend

import (
	"errors"
	"fmt"

	"rentsplit/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	t := Type(appConfig.DataBackend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}
	seed, err := appConfig.Mates()
	if err != nil {
		return Config{}, err
	}

	return Config{
		Type:              t,
		DataDir:           appConfig.DataDir,
		Seed:              seed,
		ActivityDBPath:    appConfig.ActivityDBPath,
		AMQPURL:           appConfig.AMQPURL,
		AMQPExchange:      appConfig.AMQPExchange,
		AMQPRoutingPrefix: appConfig.AMQPRoutingPrefix,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case FileBackend:
		if c.DataDir == "" {
			return errors.New("data directory is required for file backend")
		}
	case MemoryBackend:
		if len(c.Seed) == 0 {
			return errors.New("seed housemates are required for memory backend")
		}
	}

	if c.AMQPURL != "" && c.AMQPExchange == "" {
		return errors.New("AMQP exchange is required when AMQP URL is set")
	}
	return nil
}
