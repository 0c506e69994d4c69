// Command forosd runs one node of a foros cluster: it loads a YAML
// configuration, wires the Raft engine to a bbolt-backed log store and a
// gRPC transport, and blocks serving RPCs until signaled.
package main

import (
	"os"

	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if err := newRootCmd(logger).Execute(); err != nil {
		logger.Fatal().Err(err).Msg("forosd exited with error")
	}
}
