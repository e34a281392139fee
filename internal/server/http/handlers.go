package httpserver

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/helixir/paper-assistant-service/internal/domain"
)

// Pagination and request size constants.
const (
	defaultPageSize     = 50
	maxPageSize         = 100
	maxRequestBodySize  = 1 << 20 // 1 MB limit for JSON bodies
	maxFormFieldsSize   = 1 << 20 // non-file multipart fields
	defaultMaxFileBytes = 10 << 20
	defaultMaxFiles     = 10
)

// writeDomainError maps domain errors to appropriate HTTP status codes
// and writes a JSON error response. Internal error details are not leaked to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrGenerationFailed):
		writeError(w, http.StatusInternalServerError, "failed to generate document")
	case errors.Is(err, domain.ErrNotFound):
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			writeError(w, http.StatusNotFound, nf.Entity+" not found")
		} else {
			writeError(w, http.StatusNotFound, "resource not found")
		}
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrUnsupportedMedia):
		writeError(w, http.StatusUnsupportedMediaType, "invalid file type: only JPEG, PNG and PDF are allowed")
	case errors.Is(err, domain.ErrPayloadTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
	case errors.Is(err, domain.ErrRenderFailed):
		writeError(w, http.StatusBadGateway, "failed to generate document")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	case errors.Is(err, domain.ErrCancelled):
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parseUUID parses a UUID from a string, writing a 400 error response if invalid.
// Returns the parsed UUID and true on success, or uuid.Nil and false on failure.
// The parse error details are not included to avoid echoing potentially malicious input.
func parseUUID(w http.ResponseWriter, s, fieldName string) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be a valid UUID", fieldName))
		return uuid.Nil, false
	}
	return id, true
}

// parsePaginationParams extracts page_size and page_token from query parameters.
// It applies default and maximum bounds to the page size.
func parsePaginationParams(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if pageSizeStr := r.URL.Query().Get("page_size"); pageSizeStr != "" {
		if parsed, err := strconv.Atoi(pageSizeStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	if pageToken := r.URL.Query().Get("page_token"); pageToken != "" {
		decoded, err := base64.StdEncoding.DecodeString(pageToken)
		if err == nil {
			if parsed, parseErr := strconv.Atoi(string(decoded)); parseErr == nil && parsed > 0 {
				offset = parsed
			}
		}
	}

	return limit, offset
}

// encodeHTTPPageToken encodes the next offset as a base64 page token.
// Returns an empty string if there are no more results.
func encodeHTTPPageToken(offset, limit, totalCount int) string {
	nextOffset := offset + limit
	if nextOffset < totalCount {
		return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(nextOffset)))
	}
	return ""
}
