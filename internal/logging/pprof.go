package logging

import (
	"errors"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof on http.DefaultServeMux
)

// DefaultPprofAddr is used when PprofEnabled is set without an address.
const DefaultPprofAddr = "localhost:6060"

// startPprof serves the profiling endpoints in the background. A failure to
// bind is logged; searches keep running without profiling.
func startPprof(addr string) {
	if addr == "" {
		addr = DefaultPprofAddr
	}
	log := ForComponent(CompHTTP)
	srv := &http.Server{Addr: addr, ErrorLog: NewStdLogger(CompHTTP)}
	go func() {
		log.Info("pprof_server_start", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("pprof_server_error", slog.String("addr", addr), slog.String("error", err.Error()))
		}
	}()
}
