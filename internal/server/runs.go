package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	calcrundomain "github.com/railzwaylabs/landedcost/internal/calcrun/domain"
)

// @Summary      List calculation runs
// @Tags         runs
// @Produce      json
// @Param        X-User-ID  header  string  true   "Owner of the runs"
// @Param        page_size  query   int     false  "Page size"
// @Param        before     query   string  false  "Return runs older than this ID"
// @Success      200  {object}  DataResponse
// @Router       /api/runs [get]
func (s *Server) ListRuns(c *gin.Context) {
	var query struct {
		PageSize int    `form:"page_size"`
		Before   string `form:"before"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, newValidationError("page_size", "invalid_page_size", "page_size must be an integer"))
		return
	}

	req := calcrundomain.ListRequest{UserID: userIDFromHeader(c), PageSize: query.PageSize}
	if before := strings.TrimSpace(query.Before); before != "" {
		id, err := snowflake.ParseString(before)
		if err != nil {
			AbortWithError(c, newValidationError("before", "invalid_id", "invalid run id"))
			return
		}
		req.Before = id
	}

	runs, err := s.runs.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, runs)
}

// @Summary      Get calculation run
// @Tags         runs
// @Produce      json
// @Param        X-User-ID  header  string  true  "Owner of the run"
// @Param        id         path    string  true  "Run ID"
// @Success      200  {object}  DataResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/runs/{id} [get]
func (s *Server) GetRun(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid run id"))
		return
	}

	run, err := s.runs.Get(c.Request.Context(), userIDFromHeader(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, run)
}
