// file: internal/bureau/result.go

package bureau

import (
	json "github.com/goccy/go-json"
)

// Outcome tags the result of one bureau call.
type Outcome string

const (
	// OutcomeSuccess means the call succeeded and, if a response signature
	// was present, it verified.
	OutcomeSuccess Outcome = "success"

	// OutcomeFailure covers transport errors, timeouts, non-2xx statuses and
	// malformed response bodies.
	OutcomeFailure Outcome = "failure"

	// OutcomeUnverified means the call succeeded but the response signature
	// did not verify. Soft-fail: data is still usable, callers needing strict
	// authentication must check for this outcome.
	OutcomeUnverified Outcome = "signature_unverified"
)

// CallResult is the uniform result of every bureau call. Failures never
// propagate as errors across the pipeline boundary; they are folded in here.
type CallResult struct {
	Outcome    Outcome                `json:"outcome"`
	Data       map[string]interface{} `json:"data,omitempty"`
	StatusCode int                    `json:"statusCode,omitempty"`
	Reason     string                 `json:"reason,omitempty"`
	Warning    string                 `json:"warning,omitempty"`

	// SignatureVerified reports whether a response signature header was
	// present and passed verification. It is also true in unverified (demo)
	// mode; consult SecurityContext.CounterpartyKeyAvailable to tell the two
	// apart.
	SignatureVerified bool `json:"signatureVerified"`
}

// OK reports whether the call produced usable data.
func (r CallResult) OK() bool {
	return r.Outcome != OutcomeFailure
}

// Success builds a successful result.
func Success(data map[string]interface{}, statusCode int) CallResult {
	return CallResult{Outcome: OutcomeSuccess, Data: data, StatusCode: statusCode}
}

// Failure builds a failed result. statusCode is 0 when no HTTP status was
// received.
func Failure(reason string, statusCode int) CallResult {
	return CallResult{Outcome: OutcomeFailure, Reason: reason, StatusCode: statusCode}
}

// Unverified builds a result whose data arrived but whose signature failed.
func Unverified(data map[string]interface{}, statusCode int, warning string) CallResult {
	return CallResult{Outcome: OutcomeUnverified, Data: data, StatusCode: statusCode, Warning: warning}
}

// Bool reads a boolean field from the response data, false when absent,
// failed or mistyped.
func (r CallResult) Bool(key string) bool {
	if !r.OK() || r.Data == nil {
		return false
	}
	v, _ := r.Data[key].(bool)
	return v
}

// Int reads a numeric field as an int, 0 when absent, failed or mistyped.
func (r CallResult) Int(key string) int {
	return int(r.Float(key))
}

// Float reads a numeric field, 0 when absent, failed or mistyped.
func (r CallResult) Float(key string) float64 {
	if !r.OK() || r.Data == nil {
		return 0
	}
	switch v := r.Data[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	default:
		return 0
	}
}

// String reads a string field, empty when absent, failed or mistyped.
func (r CallResult) String(key string) string {
	if !r.OK() || r.Data == nil {
		return ""
	}
	v, _ := r.Data[key].(string)
	return v
}
