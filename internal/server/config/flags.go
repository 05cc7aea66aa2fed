package config

import (
	"flag"
	"os"
	"time"

	"github.com/avoron/tinychat/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8000")
//	-w string   websocket bind address (e.g., ":8982")
//	-f string   bbolt data file path
//	-s string   server secret key
//	-b int      message batch size
//	-t int      fan-out delivery timeout, seconds
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-w", "-f", "-s", "-b", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port of the HTTP API")
	fs.StringVar(&config.EndpointAddrWS, "w", config.EndpointAddrWS, "address and port of the websocket endpoint")
	fs.StringVar(&config.DataFilePath, "f", config.DataFilePath, "data file path")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.IntVar(&config.MessageBatchSize, "b", config.MessageBatchSize, "messages per batch")

	deliveryTimeout := fs.Int("t", int(config.DeliveryTimeout.Seconds()), "delivery timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.DeliveryTimeout = time.Duration(*deliveryTimeout) * time.Second
}
