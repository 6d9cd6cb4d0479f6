package tariff

import "errors"

var (
	ErrNoActiveTariff   = errors.New("no_active_tariff")
	ErrVersionNotFound  = errors.New("tariff_version_not_found")
	ErrRateNotFound     = errors.New("tariff_rate_not_found")
	ErrWeightRequired   = errors.New("net_weight_required")
	ErrUnsupportedUnit  = errors.New("unsupported_duty_unit")
	ErrUnsupportedMode  = errors.New("unsupported_compound_mode")
	ErrUnknownDutyType  = errors.New("unknown_duty_type")
	ErrInvalidDutyBasis = errors.New("invalid_duty_basis")
)
