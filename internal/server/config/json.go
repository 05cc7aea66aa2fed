package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/avoron/tinychat/internal/flagx"
)

// JsonConfig is the intermediate DTO for reading JSON configuration files.
// After unmarshalling, its fields are copied into the runtime Config.
// The timeout is an integer number of seconds.
type JsonConfig struct {
	EndpointAddrHTTP string `json:"endpoint_addr_http"`
	EndpointAddrWS   string `json:"endpoint_addr_ws"`
	DataFilePath     string `json:"data_file_path"`
	SecretKey        string `json:"secret_key"`
	MessageBatchSize int    `json:"message_batch_size"`
	DeliveryTimeout  int    `json:"delivery_timeout_seconds"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config flags into the provided Config. If no file is named, nothing
// is loaded; an unreadable or invalid file panics, as a broken explicit
// config should not start the server.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.EndpointAddrWS = c.EndpointAddrWS
	config.DataFilePath = c.DataFilePath
	config.SecretKey = c.SecretKey
	config.MessageBatchSize = c.MessageBatchSize
	config.DeliveryTimeout = time.Duration(c.DeliveryTimeout) * time.Second
}
