// Package api serves the task board over HTTP with gin.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/intorma/torma/assist"
	"github.com/intorma/torma/internal/logging"
	"github.com/intorma/torma/task"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 5 * time.Second

// Options configures a Server. The AI flows are optional; their routes
// answer 503 when a flow is nil.
type Options struct {
	Store *task.Store

	Extractor   *assist.Extractor
	Briefer     *assist.Briefer
	Speaker     *assist.Speaker
	Illustrator *assist.Illustrator

	// Location and Now define "today" for stats.
	Location *time.Location
	Now      func() time.Time

	// CORS allows any origin.
	CORS bool

	// Heartbeat is the interval of keep-alive comments on the event
	// stream. Zero means 30s.
	Heartbeat time.Duration

	Logger logrus.FieldLogger
}

// Server is the HTTP API.
type Server struct {
	opts   Options
	logger logrus.FieldLogger
	router *gin.Engine
}

// New builds the router.
func New(opts Options) *Server {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = 30 * time.Second
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	s := &Server{
		opts:   opts,
		logger: logging.OrDiscard(opts.Logger),
		router: router,
	}

	router.Use(gin.Recovery(), requestLogger(s.logger))
	if opts.CORS {
		router.Use(cors.Default())
	}

	api := router.Group("/api")
	{
		api.GET("/tasks", s.handleListTasks)
		api.POST("/tasks", s.handleCreateTask)
		api.GET("/tasks/:id", s.handleGetTask)
		api.PATCH("/tasks/:id", s.handleUpdateTask)
		api.PUT("/tasks/:id/status", s.handleUpdateStatus)
		api.DELETE("/tasks/:id", s.handleDeleteTask)

		api.GET("/board", s.handleBoard)
		api.PUT("/board/:status/order", s.handleReorder)
		api.POST("/board/drag", s.handleDrag)

		api.GET("/stats", s.handleStats)
		api.GET("/events", s.handleEvents)

		api.POST("/assist/extract", s.handleExtract)
		api.POST("/assist/summary", s.handleSummary)
		api.POST("/assist/speech", s.handleSpeech)
		api.POST("/assist/concept", s.handleConcept)
	}

	return s
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("serving")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) today() task.Date {
	return task.DateOf(s.opts.Now().In(s.opts.Location))
}

func requestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start).Round(time.Millisecond),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("error", c.Errors.String())
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Warn("request failed")
		default:
			entry.Debug("request")
		}
	}
}
