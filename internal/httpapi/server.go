// Package httpapi is the operator surface of a running display: it exposes
// the current board state and lets an operator simulate a date or time,
// force a reload or re-check the Hijri date.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/smokyabdulrahman/prayer-display/internal/board"
	"github.com/smokyabdulrahman/prayer-display/internal/clock"
)

// Board is the part of the display controller the API drives.
type Board interface {
	Snapshot() board.Snapshot
	RequestReload()
	RequestHijriCheck()
}

// Clock is the operator side of the clock source.
type Clock interface {
	Set(date, timeOfDay string) error
	Reset()
	Status() clock.Status
}

// Error is an API error with its HTTP status.
type Error struct {
	Code    int
	Message string
}

// HandlerFunc returns the response body or an error.
type HandlerFunc func(c *gin.Context) (any, *Error)

func resolve(h HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, apiErr := h(c)
		if apiErr != nil {
			c.JSON(apiErr.Code, gin.H{"error": apiErr.Message})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// OverrideRequest sets a simulated date and/or time. Empty fields clear
// that override.
type OverrideRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// ClockResponse reports the override state after a change.
type ClockResponse struct {
	Status  clock.Status `json:"status"`
	Message string       `json:"message"`
}

// AcceptedResponse acknowledges an asynchronous request.
type AcceptedResponse struct {
	Accepted bool `json:"accepted"`
}

// NewRouter builds the API routes.
func NewRouter(b Board, clk Clock) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(string) bool { return true },
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		MaxAge:          12 * time.Hour,
	}))

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	api := r.Group("/api")
	api.GET("/state", resolve(func(*gin.Context) (any, *Error) {
		return b.Snapshot(), nil
	}))
	api.POST("/reload", resolve(func(*gin.Context) (any, *Error) {
		b.RequestReload()
		return AcceptedResponse{Accepted: true}, nil
	}))
	api.POST("/hijri/check", resolve(func(*gin.Context) (any, *Error) {
		b.RequestHijriCheck()
		return AcceptedResponse{Accepted: true}, nil
	}))

	debug := api.Group("/debug")
	debug.GET("/clock", resolve(func(*gin.Context) (any, *Error) {
		return clockResponse(clk.Status()), nil
	}))
	debug.POST("/override", resolve(func(c *gin.Context) (any, *Error) {
		var req OverrideRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, &Error{Code: http.StatusBadRequest, Message: err.Error()}
		}
		if err := clk.Set(req.Date, req.Time); err != nil {
			var verr *clock.ValidationError
			if errors.As(err, &verr) {
				return nil, &Error{Code: http.StatusBadRequest, Message: verr.Error()}
			}
			return nil, &Error{Code: http.StatusInternalServerError, Message: err.Error()}
		}
		st := clk.Status()
		log.Info().Str("date", req.Date).Str("time", req.Time).Str("status", st.String()).Msg("override set")
		return clockResponse(st), nil
	}))
	debug.POST("/reset", resolve(func(*gin.Context) (any, *Error) {
		clk.Reset()
		log.Info().Msg("override reset")
		return clockResponse(clk.Status()), nil
	}))

	return r
}

func clockResponse(st clock.Status) ClockResponse {
	return ClockResponse{Status: st, Message: st.String()}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("http request")
	}
}

// Serve runs h on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("operator API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
