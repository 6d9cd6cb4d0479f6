package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	calcrundomain "github.com/railzwaylabs/landedcost/internal/calcrun/domain"
	landedcostdomain "github.com/railzwaylabs/landedcost/internal/landedcost/domain"
	ratelimitdomain "github.com/railzwaylabs/landedcost/internal/ratelimit/domain"
	referenceservice "github.com/railzwaylabs/landedcost/internal/reference/service"
	"github.com/railzwaylabs/landedcost/internal/tariff"
)

const (
	errorTypeInvalidRequest = "invalid_request_error"
	errorTypeNotFound       = "not_found_error"
	errorTypeUnavailable    = "service_unavailable_error"
	errorTypeRateLimit      = "rate_limit_error"
	errorTypeAPI            = "api_error"
)

var errInvalidRequest = errors.New("invalid_request")

func newValidationError(field, code, message string) error {
	return &landedcostdomain.ValidationError{Field: field, Code: code, Message: message}
}

func invalidRequestError() error {
	return newValidationError("", errInvalidRequest.Error(), "request body is not valid JSON")
}

// AbortWithError writes the error envelope and stops the handler chain.
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, body := describe(err)
	c.AbortWithStatusJSON(status, ErrorResponse{Error: body})
}

func describe(err error) (int, ErrorBody) {
	var verr *landedcostdomain.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, ErrorBody{
			Type:    errorTypeInvalidRequest,
			Code:    verr.Code,
			Message: verr.Message,
			Field:   verr.Field,
		}
	}

	switch {
	case errors.Is(err, tariff.ErrNoActiveTariff):
		return http.StatusServiceUnavailable, ErrorBody{Type: errorTypeUnavailable, Code: tariff.ErrNoActiveTariff.Error(), Message: "no tariff version is currently in effect"}
	case errors.Is(err, ratelimitdomain.ErrRateLimited):
		return http.StatusTooManyRequests, ErrorBody{Type: errorTypeRateLimit, Code: ratelimitdomain.ErrRateLimited.Error(), Message: "too many requests"}
	}

	for _, target := range []error{
		landedcostdomain.ErrClassificationNotFound,
		tariff.ErrRateNotFound,
		tariff.ErrVersionNotFound,
		referenceservice.ErrHsCodeNotFound,
		calcrundomain.ErrRunNotFound,
	} {
		if errors.Is(err, target) {
			return http.StatusNotFound, ErrorBody{Type: errorTypeNotFound, Code: target.Error(), Message: err.Error()}
		}
	}

	for _, bad := range []struct {
		target error
		field  string
	}{
		{referenceservice.ErrInvalidPrefix, "prefix"},
		{referenceservice.ErrInvalidHsCode, "hs6"},
		{calcrundomain.ErrUserIDRequired, userIDHeader},
		{calcrundomain.ErrInvalidPageSize, "page_size"},
	} {
		if errors.Is(err, bad.target) {
			return http.StatusBadRequest, ErrorBody{Type: errorTypeInvalidRequest, Code: bad.target.Error(), Message: err.Error(), Field: bad.field}
		}
	}

	return http.StatusInternalServerError, ErrorBody{Type: errorTypeAPI, Code: "internal_error", Message: "internal server error"}
}
