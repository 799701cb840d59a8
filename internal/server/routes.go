package server

import (
	"net/http"

	"github.com/corvid-labs/quill/pkg/query"

	"github.com/labstack/echo/v4"
)

// RegisterRoutes attaches the query API to the echo instance.
func RegisterRoutes(e *echo.Echo, pipeline *query.Pipeline, trace *query.QueryTrace) {
	e.GET("/health", GetHealthHandler)
	e.POST("/api/query", PostQueryHandler(pipeline))
	e.GET("/api/stats", GetStatsHandler(pipeline))
	e.GET("/api/trace", GetTraceHandler(trace))
	e.POST("/api/authority/refresh", PostAuthorityRefreshHandler(pipeline))
}

func GetHealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func PostQueryHandler(pipeline *query.Pipeline) echo.HandlerFunc {
	type postQueryParams struct {
		Question string `json:"question" validate:"required"`
	}

	return func(c echo.Context) error {
		params := new(postQueryParams)
		if err := c.Bind(params); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		}
		if err := c.Validate(params); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		}

		resp := pipeline.Query(c.Request().Context(), params.Question)
		return c.JSON(http.StatusOK, resp)
	}
}

func GetStatsHandler(pipeline *query.Pipeline) echo.HandlerFunc {
	type statsResponse struct {
		Documents int              `json:"documents"`
		Passages  int              `json:"passages"`
		Edges     int              `json:"edges"`
		AvgDegree float64          `json:"avg_degree"`
		Usage     query.TokenUsage `json:"usage"`
	}

	return func(c echo.Context) error {
		stats, err := pipeline.Stats(c.Request().Context())
		if err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"message": "Graph store unavailable"})
		}
		return c.JSON(http.StatusOK, statsResponse{
			Documents: stats.Documents,
			Passages:  stats.Passages,
			Edges:     stats.Edges,
			AvgDegree: stats.AvgDegree,
			Usage:     pipeline.Usage(),
		})
	}
}

func GetTraceHandler(trace *query.QueryTrace) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, trace.Snapshot())
	}
}

func PostAuthorityRefreshHandler(pipeline *query.Pipeline) echo.HandlerFunc {
	return func(c echo.Context) error {
		pipeline.InvalidateAuthorityCache()
		return c.JSON(http.StatusAccepted, map[string]string{"status": "authority cache invalidated"})
	}
}
