// Package server exposes the engine over a JSON API, pushes view changes
// over a websocket and serves Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	stdhttp "net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/julianstephens/restreak/internal/constants"
	"github.com/julianstephens/restreak/internal/engine"
	"github.com/julianstephens/restreak/internal/errors"
	"github.com/julianstephens/restreak/internal/logger"
	"github.com/julianstephens/restreak/internal/metrics"
	"github.com/julianstephens/restreak/internal/models"
	"github.com/julianstephens/restreak/internal/utils"
)

// Mentor is the coaching backend; nil disables /api/mentor.
type Mentor interface {
	Advise(ctx context.Context, displayName string, habits []models.Habit) (string, error)
}

type Server struct {
	engine *engine.Engine
	mentor Mentor
	hub    *Hub
	echo   *echo.Echo
	log    *log.Logger
}

func New(eng *engine.Engine, mentor Mentor) *Server {
	s := &Server{
		engine: eng,
		mentor: mentor,
		hub:    NewHub(),
		echo:   echo.New(),
		log:    logger.With("component", "http"),
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.Recover())
	s.echo.Use(s.requestMetrics)
	s.routes()
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() stdhttp.Handler { return s.echo }

func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) routes() {
	s.echo.GET("/healthz", s.health)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/ws", s.websocket)

	api := s.echo.Group("/api")
	api.GET("/view", s.view)
	api.GET("/dashboard", s.dashboard)
	api.GET("/calendar", s.calendar)
	api.GET("/rewards", s.rewards)
	api.GET("/activity", s.activity)
	api.GET("/profile", s.profile)
	api.GET("/habits", s.listHabits)
	api.POST("/habits", s.createHabit)
	api.DELETE("/habits/:id", s.deleteHabit)
	api.POST("/habits/:id/toggle", s.toggleHabit)
	api.POST("/badges/sync", s.syncBadges)
	api.POST("/mentor", s.askMentor)
}

// Run serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	go s.hub.Run(ctx, s.engine.Subscribe(ctx))

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Server listening", "addr", addr)
		if err := s.echo.Start(addr); err != nil && err != stdhttp.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}

func (s *Server) requestMetrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		status := strconv.Itoa(c.Response().Status)
		metrics.RecordHTTPRequest(c.Request().Method, c.Path(), status, time.Since(start))
		s.log.Debug("Request", "method", c.Request().Method, "path", c.Path(), "status", status)
		return nil
	}
}

func (s *Server) health(c echo.Context) error {
	v := s.engine.View()
	return success(c, stdhttp.StatusOK, map[string]any{
		"status":  "ok",
		"version": constants.Version,
		"view":    v.Version,
		"today":   v.Today,
	})
}

func (s *Server) view(c echo.Context) error {
	return success(c, stdhttp.StatusOK, s.engine.View())
}

func (s *Server) dashboard(c echo.Context) error {
	return success(c, stdhttp.StatusOK, s.engine.Dashboard())
}

// calendar takes ?month=YYYY-MM, defaulting to the current month.
func (s *Server) calendar(c echo.Context) error {
	v := s.engine.View()
	year, month := v.Calendar.Year, v.Calendar.Month
	if raw := c.QueryParam("month"); raw != "" {
		y, m, err := utils.ParseMonth(raw)
		if err != nil {
			return failure(c, errors.Invalid("calendar", "month", err))
		}
		year, month = y, m
	}
	return success(c, stdhttp.StatusOK, s.engine.Calendar(year, month))
}

func (s *Server) rewards(c echo.Context) error {
	return success(c, stdhttp.StatusOK, s.engine.Rewards())
}

func (s *Server) activity(c echo.Context) error {
	return success(c, stdhttp.StatusOK, s.engine.Activity())
}

func (s *Server) profile(c echo.Context) error {
	return success(c, stdhttp.StatusOK, s.engine.Profile())
}

func (s *Server) listHabits(c echo.Context) error {
	return success(c, stdhttp.StatusOK, s.engine.View().Habits)
}

func (s *Server) createHabit(c echo.Context) error {
	var in engine.NewHabit
	if err := c.Bind(&in); err != nil {
		return failure(c, errors.Invalid("create_habit", "request body", err))
	}
	id, err := s.engine.CreateHabit(c.Request().Context(), in)
	if err != nil {
		return failure(c, err)
	}
	return success(c, stdhttp.StatusCreated, map[string]string{"id": id})
}

func (s *Server) deleteHabit(c echo.Context) error {
	if err := s.engine.DeleteHabit(c.Request().Context(), c.Param("id")); err != nil {
		return failure(c, err)
	}
	return c.NoContent(stdhttp.StatusNoContent)
}

func (s *Server) toggleHabit(c echo.Context) error {
	res, err := s.engine.ToggleCompletion(c.Request().Context(), c.Param("id"))
	if err != nil {
		return failure(c, err)
	}
	return success(c, stdhttp.StatusOK, res)
}

func (s *Server) syncBadges(c echo.Context) error {
	added, err := s.engine.SyncBadges(c.Request().Context())
	if err != nil {
		return failure(c, err)
	}
	if added == nil {
		added = []string{}
	}
	return success(c, stdhttp.StatusOK, map[string][]string{"added": added})
}

func (s *Server) askMentor(c echo.Context) error {
	if s.mentor == nil {
		return failure(c, errors.Invalid("mentor", "mentor", fmt.Errorf("mentor is not configured")))
	}
	v := s.engine.View()
	advice, err := s.mentor.Advise(c.Request().Context(), v.Profile.DisplayName, v.RawHabits())
	resp := map[string]any{"advice": advice, "fallback": err != nil}
	return success(c, stdhttp.StatusOK, resp)
}

func (s *Server) websocket(c echo.Context) error {
	initial, err := json.Marshal(s.engine.View())
	if err != nil {
		return err
	}
	return s.hub.serve(c.Response(), c.Request(), initial)
}
