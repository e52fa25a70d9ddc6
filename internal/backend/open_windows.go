//go:build windows

package backend

import (
	"github.com/bryanchriswhite/screencap/internal/capture"
	"github.com/bryanchriswhite/screencap/internal/capture/win32"
)

func openPlatform() (capture.Platform, error) {
	return win32.New()
}
