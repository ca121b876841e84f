// Package httpapi is the shell's optional admin HTTP surface: a small,
// off-by-default read/administrative plane in front of the job table,
// inverting zmux-server's own shape (there, HTTP is the only front end
// over a process supervisor; here, HTTP is an optional window onto an
// interactive CLI's jobs). It never participates in the read-eval loop
// itself — every handler only reads from or signals through the same
// Table and logsink.Sink the core shell already owns.
package httpapi

import (
	"context"
	"crypto/rand"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jsnshll/myshell/internal/jobtable"
	"github.com/jsnshll/myshell/internal/logsink"
)

// Options configures the admin HTTP surface.
type Options struct {
	Addr       string
	Env        string // "dev" enables permissive CORS, mirroring zmux-server's ENV=dev gate
	AdminToken string // empty disables bearer-token auth on mutating routes
}

// Server wraps a gin.Engine and the http.Server serving it.
type Server struct {
	log    *zap.Logger
	engine *gin.Engine
	http   *http.Server
}

// NewServer builds the admin HTTP surface. table and log are read by
// every handler; sink backs the log tail endpoint.
func NewServer(log *zap.Logger, table *jobtable.Table, sink logsink.Sink, opts Options) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("httpapi")

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"127.0.0.1"})

	r.Use(gin.Recovery())

	if opts.Env == "dev" || opts.Env == "" {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:5173"},
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type", "Authorization"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(secure.New(secure.Config{
		SSLRedirect:           false,
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ContentSecurityPolicy: "default-src 'none'",
	}))

	r.Use(requestID())
	r.Use(zapLogger(log))

	cookieSecret := make([]byte, 32)
	_, _ = rand.Read(cookieSecret)
	store := cookie.NewStore(cookieSecret)
	store.Options(sessions.Options{Path: "/api", MaxAge: 4 * 3600, HttpOnly: true, Secure: opts.Env != "dev"})
	r.Use(sessions.Sessions("sid", store))

	snap := jobtable.NewSnapshotter(table, 250*time.Millisecond)
	h := &handlers{log: log, table: table, snap: snap, sink: sink, adminToken: opts.AdminToken}

	api := r.Group("/api")
	api.GET("/jobs", h.listJobs)
	api.GET("/jobs/:id", h.getJob)
	api.GET("/log/recent", h.recentLog)
	api.POST("/login", h.login)

	mutating := api.Group("")
	mutating.Use(adminAuth(opts.AdminToken))
	mutating.POST("/jobs/:id/signal", h.signalJob)

	return &Server{
		log:    log,
		engine: r,
		http:   &http.Server{Addr: opts.Addr, Handler: r},
	}
}

// ListenAndServe blocks serving the admin API until the process exits
// or Shutdown is called from another goroutine.
func (s *Server) ListenAndServe() error {
	s.log.Info("admin http surface listening", zap.String("addr", s.http.Addr))
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
