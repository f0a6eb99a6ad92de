package chat

import (
	apperrors "phone-sim-demo/backend/pkg/errors"
)

// Pipeline error codes. All three abort the current turn before any
// message reaches the conversation store.
const (
	CodeMissingPersona     = "MISSING_PERSONA"
	CodeGatewayUnavailable = "GATEWAY_UNAVAILABLE"
	CodeMalformedReply     = "MALFORMED_REPLY"
)

func newMissingPersonaError(contactID string) *apperrors.AppError {
	return apperrors.NewUnprocessableError(CodeMissingPersona, "contact has no usable persona").
		WithDetails(map[string]string{"contact_id": contactID})
}

func newGatewayUnavailableError(reason string) *apperrors.AppError {
	return apperrors.NewBadGatewayError(CodeGatewayUnavailable, "model gateway request failed").
		WithDetails(map[string]string{"reason": reason})
}

func newMalformedReplyError(reason string) *apperrors.AppError {
	return apperrors.NewBadGatewayError(CodeMalformedReply, "model gateway reply could not be interpreted").
		WithDetails(map[string]string{"reason": reason})
}
