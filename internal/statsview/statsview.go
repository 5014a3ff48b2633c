//go:build statsview

// Package statsview serves live runtime charts (heap, goroutines, GC) over
// HTTP while the emulator runs. It is only compiled with the statsview build
// tag so release binaries do not open a port.
package statsview

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

// Path is where the charts are served. DefaultAddr is used when the flag
// is given without a value.
const (
	Path        = "/debug/statsview"
	DefaultAddr = "localhost:12800"
)

// Available reports whether the stats server was compiled in.
func Available() bool {
	return true
}

// Launch starts the server on addr in the background and stops it once ctx
// ends.
func Launch(ctx context.Context, addr string) {
	viewer.SetConfiguration(viewer.WithAddr(addr))
	mgr := statsview.New()

	go func() {
		if err := mgr.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("stats server stopped", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		mgr.Stop()
	}()

	slog.Info("stats server started", "url", "http://"+addr+Path)
}
