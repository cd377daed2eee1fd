package chart

import "fmt"

// ConfigError reports an aggregation parameter the caller can correct:
// an out-of-range ATR length, a brick/box size outside the allowed bounds,
// or an invalid reversal count.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "chart: invalid config: " + e.Reason
}

func configErrorf(format string, args ...interface{}) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// InputError reports malformed series data: mismatched array lengths or
// inconsistent missing values across open/high/low/close.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string {
	return "chart: invalid input: " + e.Reason
}

func inputErrorf(format string, args ...interface{}) *InputError {
	return &InputError{Reason: fmt.Sprintf(format, args...)}
}
