//go:build linux

package backend

import (
	"github.com/bryanchriswhite/screencap/internal/capture"
	"github.com/bryanchriswhite/screencap/internal/capture/x11"
)

func openPlatform() (capture.Platform, error) {
	return x11.New()
}
