package api

import (
	"errors"
	"net/http"

	"github.com/hugo-lorenzo-mato/partitura-ai/internal/core"
)

// httpStatusForError maps domain errors onto HTTP status codes.
func httpStatusForError(err error) int {
	if core.IsAllReplicatesFailed(err) {
		return http.StatusBadGateway
	}

	var domErr *core.DomainError
	if !errors.As(err, &domErr) || domErr == nil {
		return http.StatusInternalServerError
	}

	switch domErr.Category {
	case core.ErrCatValidation:
		return http.StatusUnprocessableEntity
	case core.ErrCatAuth:
		return http.StatusUnauthorized
	case core.ErrCatRateLimit:
		return http.StatusTooManyRequests
	case core.ErrCatTimeout:
		return http.StatusGatewayTimeout
	case core.ErrCatTransfer, core.ErrCatNetwork, core.ErrCatAnalysis, core.ErrCatParse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondDomainError(w http.ResponseWriter, err error) {
	respondError(w, httpStatusForError(err), err.Error())
}
