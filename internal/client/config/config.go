package config

import "time"

// Config is what the operator CLI needs to reach the PayDesk server.
// RequestTimeout caps each RPC, token refresh included.
type Config struct {
	ServerEndpointAddr string
	RequestTimeout     time.Duration
}

// LoadDefaults points c at a local server with a 10s call timeout.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.RequestTimeout = 10 * time.Second
}

// LoadConfig returns defaults overridden by the JSON file, then by -a and -t.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
