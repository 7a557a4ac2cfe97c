package httpserver

import (
	"net/http"
	"time"
)

// New builds the ledger's HTTP server. Read and write timeouts are sized for
// evidence payload uploads, which can carry multi-megabyte attachment bodies.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}
