//go:build !windows && !linux

package backend

import (
	"github.com/bryanchriswhite/screencap/internal/capture"
	"github.com/bryanchriswhite/screencap/internal/capture/portable"
)

func openPlatform() (capture.Platform, error) {
	return portable.New()
}
