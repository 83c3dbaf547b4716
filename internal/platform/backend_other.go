//go:build !linux

package platform

import (
	"fmt"
	"log/slog"
	"runtime"
	"time"
)

// OpenNative reports that no native surface exists for this platform; use
// the memory backend instead.
func OpenNative(time.Duration, *slog.Logger) (NativeSurface, error) {
	return nil, fmt.Errorf("no native window backend for %s", runtime.GOOS)
}
