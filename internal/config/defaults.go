package config

import "time"

// Default configuration values.
const (
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "json"
	DefaultWorldName         = "world"
	DefaultWorldDB           = "/var/lib/obsidiand/world.db"
	DefaultFlushInterval     = 30 * time.Second
	DefaultAPIListen         = "0.0.0.0:8575"
	DefaultEventBufferSize   = 10000
	DefaultScriptConcurrency = 4
	DefaultScriptTimeout     = 10 * time.Second
	DefaultWebhookTimeout    = 10 * time.Second
)
