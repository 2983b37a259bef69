package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/paydesk/internal/flagx"
	"github.com/dmitrijs2005/paydesk/internal/timex"
)

// JsonConfig mirrors Config in the settings file. request_timeout takes a
// duration string such as "10s" or a number of nanoseconds.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	RequestTimeout     timex.Duration `json:"request_timeout"`
}

// parseJson loads the settings file given with -c or -config. A missing or
// malformed file panics; keys left out keep their current value.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
}
