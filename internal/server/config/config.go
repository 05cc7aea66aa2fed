// Package config handles configuration for the server component,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the chat server.
//
// Fields:
//   - EndpointAddrHTTP: bind address for the request/response API.
//   - EndpointAddrWS: bind address for the real-time websocket endpoint.
//   - DataFilePath: path of the bbolt data file (the whole storage root).
//   - SecretKey: server secret mixed into credential digests. Do not use
//     the default in prod.
//   - MessageBatchSize: messages per batch before rollover.
//   - DeliveryTimeout: upper bound on waiting for one slow subscriber
//     during fan-out.
type Config struct {
	EndpointAddrHTTP string
	EndpointAddrWS   string
	DataFilePath     string
	SecretKey        string
	MessageBatchSize int
	DeliveryTimeout  time.Duration
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8000"
	c.EndpointAddrWS = ":8982"
	c.DataFilePath = "tinychat.db"
	c.SecretKey = "secretKey"
	c.MessageBatchSize = 30
	c.DeliveryTimeout = 5 * time.Second
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
