package main

import "github.com/rs/zerolog"

// logPublisher is the host Publisher passed to lifecycle.Bridge: every real
// application-level publisher (out of scope for this repository) registers
// alongside it, but the host itself always gets notified so a node's own
// process can react to activation without going through the registration
// list.
type logPublisher struct {
	logger zerolog.Logger
}

func (p logPublisher) OnStandby()     { p.logger.Info().Msg("lifecycle: standby") }
func (p logPublisher) OnActivated()   { p.logger.Info().Msg("lifecycle: activated (leader)") }
func (p logPublisher) OnDeactivated() { p.logger.Info().Msg("lifecycle: deactivated (follower)") }
