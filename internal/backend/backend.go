// Package backend picks the capture.Platform for the running OS.
package backend

import (
	"fmt"

	"github.com/bryanchriswhite/screencap/internal/capture"
	"github.com/bryanchriswhite/screencap/internal/logger"
)

// Open connects to the native windowing system and wraps it in an Engine.
func Open(opts ...capture.Option) (*capture.Engine, error) {
	log := logger.WithComponent("backend")

	p, err := openPlatform()
	if err != nil {
		log.Error().Err(err).Msg("No capture backend available")
		return nil, fmt.Errorf("no capture backend available: %w", err)
	}
	log.Info().
		Str("backend", p.Name()).
		Stringer("channel_order", p.ChannelOrder()).
		Msg("Capture backend initialized")
	return capture.NewEngine(p, opts...), nil
}
