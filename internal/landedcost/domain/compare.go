package domain

import "errors"

// ScenarioResult is one entry of a comparison, in request order. Exactly
// one of Output and Error is set.
type ScenarioResult struct {
	Index  int            `json:"index"`
	Output *CalcOutput    `json:"output,omitempty"`
	Error  *ScenarioError `json:"error,omitempty"`
}

type ScenarioError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// DescribeError reduces a calculation error to a stable code.
func DescribeError(err error) ScenarioError {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return ScenarioError{Code: verr.Code, Message: verr.Message, Field: verr.Field}
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return ScenarioError{Code: nf.Err.Error(), Message: nf.Error()}
	}
	return ScenarioError{Code: "internal_error", Message: "calculation failed"}
}
