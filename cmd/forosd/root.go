package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newRootCmd(logger zerolog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "forosd",
		Short: "forosd runs one node of a Raft-backed failover cluster",
	}
	root.AddCommand(newServeCmd(logger))
	return root
}
