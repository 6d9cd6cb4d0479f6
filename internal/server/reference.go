package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// @Summary      Search HS codes
// @Tags         reference
// @Produce      json
// @Param        prefix  query  string  false  "Digits the code starts with"
// @Param        limit   query  int     false  "Maximum rows"
// @Success      200  {object}  DataResponse
// @Router       /api/hscodes [get]
func (s *Server) ListHsCodes(c *gin.Context) {
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be an integer"))
			return
		}
		limit = v
	}

	codes, err := s.reference.ListHsCodes(c.Request.Context(), c.Query("prefix"), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, codes)
}

// @Summary      Get HS code
// @Tags         reference
// @Produce      json
// @Param        hs6  path  string  true  "HS code"
// @Success      200  {object}  DataResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/hscodes/{hs6} [get]
func (s *Server) GetHsCode(c *gin.Context) {
	code, err := s.reference.GetHsCode(c.Request.Context(), c.Param("hs6"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, code)
}

// @Summary      List product clusters
// @Tags         reference
// @Produce      json
// @Success      200  {object}  DataResponse
// @Router       /api/clusters [get]
func (s *Server) ListClusters(c *gin.Context) {
	clusters, err := s.reference.ListClusters(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, clusters)
}

// @Summary      List countries
// @Tags         reference
// @Produce      json
// @Success      200  {object}  DataResponse
// @Router       /api/countries [get]
func (s *Server) ListCountries(c *gin.Context) {
	countries, err := s.reference.ListCountries(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, countries)
}

// @Summary      List tariff versions
// @Tags         reference
// @Produce      json
// @Success      200  {object}  DataResponse
// @Router       /api/tariff-versions [get]
func (s *Server) ListTariffVersions(c *gin.Context) {
	versions, err := s.reference.ListTariffVersions(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, versions)
}
