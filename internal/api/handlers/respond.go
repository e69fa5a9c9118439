package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/wonny/bondlab/internal/contracts"
)

// maxBodyBytes bounds request bodies. A portfolio of a few thousand bonds fits.
const maxBodyBytes = 4 << 20

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondFailure reports err with its failure kind and a matching status.
func respondFailure(w http.ResponseWriter, err error) {
	respondJSON(w, statusFor(err), map[string]string{
		"error": err.Error(),
		"kind":  string(contracts.KindOf(err)),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, contracts.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, contracts.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, contracts.ErrResolution),
		errors.Is(err, contracts.ErrInvalidSchedule),
		errors.Is(err, contracts.ErrNegativePrice),
		errors.Is(err, contracts.ErrYieldNotConverged):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// readBody reads a bounded request body. An empty body is malformed input.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", contracts.ErrInvalidInput, err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty request body", contracts.ErrInvalidInput)
	}
	return body, nil
}

func decodeObject(body []byte) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: body must be a JSON object: %v", contracts.ErrInvalidInput, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: body must be a JSON object", contracts.ErrInvalidInput)
	}
	return raw, nil
}
