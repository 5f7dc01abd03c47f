package config

const (
	defaultDataDir                 = "~/.local/share/filepilot"
	defaultLogDir                  = "~/.local/share/filepilot/logs"
	defaultUIDir                   = "~/.local/share/filepilot/ui"
	defaultBrokerURL               = "amqp://localhost"
	defaultQueueName               = "suggestion-notifications"
	defaultPrefetch                = 1
	defaultMaxDeliveryAttempts     = 5
	defaultReconnectInitialMS      = 500
	defaultReconnectMaxSeconds     = 30
	defaultAttemptCacheSize        = 1024
	defaultSurfaceBind             = "127.0.0.1:7489"
	defaultDevOrigin               = "http://localhost:5123"
	defaultNotifyRequestTimeout    = 10
	defaultOrganizerRequestTimeout = 30
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	brokerURLEnv                   = "FILEPILOT_AMQP_URL"
	organizerURLEnv                = "FILEPILOT_ORGANIZER_URL"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Broker: Broker{
			URL:                 defaultBrokerURL,
			Queue:               defaultQueueName,
			Prefetch:            defaultPrefetch,
			MaxDeliveryAttempts: defaultMaxDeliveryAttempts,
			ReconnectInitialMS:  defaultReconnectInitialMS,
			ReconnectMaxSeconds: defaultReconnectMaxSeconds,
			AttemptCacheSize:    defaultAttemptCacheSize,
		},
		Surface: Surface{
			Bind:      defaultSurfaceBind,
			DevOrigin: defaultDevOrigin,
			UIDir:     defaultUIDir,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Organizer: Organizer{
			RequestTimeout: defaultOrganizerRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
