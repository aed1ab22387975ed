// Package quality serves the data quality report of the latest run.
package quality

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/expressions"
	"github.com/Ramsey-B/fern/pkg/pipeline"
)

// SummarySource yields the latest run summary.
type SummarySource interface {
	Latest() (*pipeline.Summary, error)
}

type handler struct {
	source    SummarySource
	evaluator *expressions.Evaluator
}

// Register registers quality routes.
//
// GET /quality returns the quality metrics of the latest run. The optional
// query parameter is a JMESPath expression applied to them; report=summary
// applies it to the whole run summary instead.
func Register(g *echo.Group, source SummarySource) {
	h := &handler{source: source, evaluator: expressions.NewEvaluator()}
	g.GET("/quality", h.get)
}

func (h *handler) get(c echo.Context) error {
	summary, err := h.source.Latest()
	if errors.Is(err, fs.ErrNotExist) {
		return echo.NewHTTPError(http.StatusNotFound, "no run has completed yet")
	}
	if err != nil {
		return err
	}

	var doc any = summary.Quality
	switch c.QueryParam("report") {
	case "", "quality":
		if summary.Quality == nil {
			return echo.NewHTTPError(http.StatusNotFound, "the latest run has no quality metrics")
		}
	case "summary":
		doc = summary
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "report must be quality or summary")
	}

	query := c.QueryParam("query")
	if query == "" {
		return c.JSON(http.StatusOK, doc)
	}

	result, err := h.evaluator.EvaluateDocument(query, doc)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{
		"run_id": summary.RunID,
		"query":  query,
		"result": result,
	})
}
