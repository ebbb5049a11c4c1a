package errors

import (
	"encoding/json"
	"fmt"
)

// FormatForCLI formats an error for CLI output. Uses a concise format
// suitable for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	ce, ok := err.(*ChemError)
	if !ok {
		ce = Wrap(ErrCodeInternal, err)
	}

	return fmt.Sprintf("Error: %s\n  Code: %s\n", ce.Message, ce.Code)
}

// jsonError is the JSON representation of an error.
type jsonError struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Category string            `json:"category"`
	Severity string            `json:"severity"`
	Details  map[string]string `json:"details,omitempty"`
	Cause    string            `json:"cause,omitempty"`
}

// FormatJSON returns a JSON representation of the error, suitable for
// machine consumption and structured logging.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	ce, ok := err.(*ChemError)
	if !ok {
		ce = Wrap(ErrCodeInternal, err)
	}

	je := jsonError{
		Code:     ce.Code,
		Message:  ce.Message,
		Category: string(ce.Category),
		Severity: string(ce.Severity),
		Details:  ce.Details,
	}

	if ce.Cause != nil {
		je.Cause = ce.Cause.Error()
	}

	return json.Marshal(je)
}

// FormatForLog formats an error for structured logging. Returns
// key-value pairs suitable for slog attributes.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	ce, ok := err.(*ChemError)
	if !ok {
		return map[string]any{
			"error": err.Error(),
		}
	}

	result := map[string]any{
		"error_code": ce.Code,
		"message":    ce.Message,
		"category":   string(ce.Category),
		"severity":   string(ce.Severity),
	}

	if ce.Cause != nil {
		result["cause"] = ce.Cause.Error()
	}

	for k, v := range ce.Details {
		result["detail_"+k] = v
	}

	return result
}
