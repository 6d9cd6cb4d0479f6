package server

import (
	"github.com/gin-gonic/gin"
	landedcostdomain "github.com/railzwaylabs/landedcost/internal/landedcost/domain"
)

type compareRequest struct {
	Scenarios []landedcostdomain.CalcInput `json:"scenarios"`
}

type rateHunterRequest struct {
	Input landedcostdomain.CalcInput   `json:"input"`
	Base  *landedcostdomain.CalcOutput `json:"base,omitempty"`
}

// @Summary      Calculate landed cost
// @Tags         landed-cost
// @Accept       json
// @Produce      json
// @Param        X-User-ID  header  string  false  "Records the run under this user"
// @Success      200  {object}  DataResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /api/calculate [post]
func (s *Server) Calculate(c *gin.Context) {
	var req landedcostdomain.CalcInput
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	out, err := s.calculator.Calculate(c.Request.Context(), req, userIDFromHeader(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, out)
}

// @Summary      Compare scenarios
// @Tags         landed-cost
// @Accept       json
// @Produce      json
// @Success      200  {object}  DataResponse
// @Failure      400  {object}  ErrorResponse
// @Router       /api/compare [post]
func (s *Server) Compare(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	results, err := s.calculator.Compare(c.Request.Context(), req.Scenarios)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, results)
}

// @Summary      Find cheaper origins
// @Tags         landed-cost
// @Accept       json
// @Produce      json
// @Success      200  {object}  DataResponse
// @Failure      400  {object}  ErrorResponse
// @Router       /api/rate-hunter [post]
func (s *Server) RateHunter(c *gin.Context) {
	var req rateHunterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.hunter.FindBetterOrigins(c.Request.Context(), req.Input, req.Base)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, result)
}
