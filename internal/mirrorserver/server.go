// Package mirrorserver re-serves a directory of previously fetched
// resources over HTTP so units can resolve against a private mirror
// instead of the public network.
package mirrorserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/deploykit/resource-mirror/internal/utils/logger"
)

// Handler returns the mirror's HTTP handler: plain static file serving
// of rootDir with directory listings left enabled, since hash discovery
// walks the mirror's listing pages.
func Handler(rootDir string) http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Handle("/*", http.FileServer(http.Dir(rootDir)))
	return r
}

// Serve blocks, serving rootDir on addr.
func Serve(addr string, rootDir string) error {
	logger.Logger().Infof("serving mirror of %s at http://%s/", rootDir, addr)
	server := &http.Server{
		Addr:              addr,
		Handler:           Handler(rootDir),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server.ListenAndServe()
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.Logger().Debugf("%s %s -> %d (%s)",
			r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}
