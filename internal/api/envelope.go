package api

import "github.com/danielgtaylor/huma/v2"

// EnvelopeVersion is the wire format version clients check before parsing.
const EnvelopeVersion = 1

// APIEnvelope is the standard response wrapper.
type APIEnvelope struct {
	Version int    `json:"v" doc:"Envelope format version"`
	Success bool   `json:"success" doc:"Whether the request succeeded"`
	Data    any    `json:"data,omitempty" doc:"Response payload"`
	Error   string `json:"error,omitempty" doc:"Error message when success is false"`
}

// APIErrorEnvelope wraps errors that carry a machine-readable code and
// structured details.
type APIErrorEnvelope struct {
	Version int    `json:"v" doc:"Envelope format version"`
	Success bool   `json:"success" doc:"Always false"`
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// EnvelopeTransformer wraps every response body in the versioned envelope.
// Registered on the huma config so handlers return bare payloads.
func EnvelopeTransformer(_ huma.Context, _ string, v any) (any, error) {
	switch e := v.(type) {
	case *APIError:
		if e.Code != "" {
			return APIErrorEnvelope{
				Version: EnvelopeVersion,
				Success: false,
				Code:    e.Code,
				Message: e.Message,
				Details: e.Details,
			}, nil
		}
		return APIEnvelope{
			Version: EnvelopeVersion,
			Success: false,
			Error:   e.Message,
		}, nil
	case error:
		return APIEnvelope{
			Version: EnvelopeVersion,
			Success: false,
			Error:   e.Error(),
		}, nil
	default:
		return APIEnvelope{
			Version: EnvelopeVersion,
			Success: true,
			Data:    v,
		}, nil
	}
}
