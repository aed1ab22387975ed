// Package runs serves the latest run summary, its well records, and
// triggers new runs.
package runs

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"sync"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/pipeline"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// Runner executes and reports pipeline runs.
type Runner interface {
	Run(ctx context.Context, opts pipeline.Options) (*pipeline.Summary, error)
	Latest() (*pipeline.Summary, error)
	Running() bool
}

// WellStore reads published run snapshots.
type WellStore interface {
	Latest(ctx context.Context) (*models.Run, error)
	ListWells(ctx context.Context, run *models.Run, key string, limit, offset int) ([]models.WellRecord, error)
}

// TriggerRequest selects the options of a triggered run.
type TriggerRequest struct {
	SkipDownload bool `json:"skip_download"`
	SkipProfile  bool `json:"skip_profile"`
}

// Triggered tracks runs started through the API.
type Triggered struct {
	wg sync.WaitGroup
}

// Wait blocks until every triggered run has returned or ctx ends.
func (t *Triggered) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type handler struct {
	runner    Runner
	store     WellStore
	logger    ectologger.Logger
	triggered *Triggered
}

// Register registers run routes. store may be nil when the database sink
// is disabled. The returned Triggered lets shutdown wait for runs started
// by POST /runs.
func Register(g *echo.Group, runner Runner, store WellStore, logger ectologger.Logger) *Triggered {
	h := &handler{runner: runner, store: store, logger: logger, triggered: &Triggered{}}
	g.GET("/runs/latest", h.latest)
	g.GET("/runs/latest/wells", h.wells)
	g.POST("/runs", h.trigger)
	return h.triggered
}

func (h *handler) latest(c echo.Context) error {
	summary, err := h.runner.Latest()
	if errors.Is(err, fs.ErrNotExist) {
		return echo.NewHTTPError(http.StatusNotFound, "no run has completed yet")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *handler) trigger(c echo.Context) error {
	var req TriggerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid run request")
	}
	if h.runner.Running() {
		return echo.NewHTTPError(http.StatusConflict, pipeline.ErrRunInProgress.Error())
	}

	ctx := context.WithoutCancel(c.Request().Context())
	opts := pipeline.Options{SkipDownload: req.SkipDownload, SkipProfile: req.SkipProfile}
	h.triggered.wg.Add(1)
	go func() {
		defer h.triggered.wg.Done()
		if _, err := h.runner.Run(ctx, opts); err != nil {
			h.logger.WithContext(ctx).WithError(err).Warn("Triggered run did not succeed")
		}
	}()

	return c.JSON(http.StatusAccepted, map[string]any{
		"status":        "accepted",
		"skip_download": req.SkipDownload,
		"skip_profile":  req.SkipProfile,
	})
}

func (h *handler) wells(c echo.Context) error {
	if h.store == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "well records are not stored, enable the database sink")
	}
	ctx := c.Request().Context()

	limit, err := queryInt(c, "limit", defaultLimit)
	if err != nil {
		return err
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return err
	}
	limit = min(limit, maxLimit)

	run, err := h.store.Latest(ctx)
	if err != nil {
		return err
	}
	wells, err := h.store.ListWells(ctx, run, c.QueryParam("key"), limit, offset)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"run_id": run.ID,
		"limit":  limit,
		"offset": offset,
		"wells":  wells,
	})
}

func queryInt(c echo.Context, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be a non-negative integer")
	}
	return v, nil
}
