//go:build !statsview

package statsview

import (
	"context"
	"log/slog"
)

const (
	Path        = "/debug/statsview"
	DefaultAddr = "localhost:12800"
)

func Available() bool {
	return false
}

// Launch only logs that the binary was built without the statsview tag.
func Launch(_ context.Context, addr string) {
	slog.Warn("stats server not built in, rebuild with -tags statsview", "addr", addr)
}
