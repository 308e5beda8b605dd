package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

type RouterDeps struct {
	ServiceName string
	Version     string
	Finder      Finder
	Logger      *zap.Logger
}

// BuildRouter wires the public routes: the recommendation endpoint, health
// checks and Prometheus metrics. CORS is open to every origin.
func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(RequestID(dep.Logger))
	r.Use(gin.CustomRecoveryWithWriter(io.Discard, recoverWithRetrievalError(dep.Logger)))
	r.Use(cors.Default())

	NewHealthHandler(dep.ServiceName, dep.Version).RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	NewResourcesHandler(dep.Finder, dep.Logger).RegisterRoutes(r)

	return r
}

// SetGinMode switches gin to release mode unless debug output is requested.
func SetGinMode(debug bool) {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
}

// Run serves handler on addr until ctx is done, then shuts down gracefully.
func Run(ctx context.Context, addr string, handler http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server is running", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down the server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	return nil
}
