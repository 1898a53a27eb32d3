package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"go-trade-journal/internal/model"
	"go-trade-journal/pkg/apierror"
)

func writeSuccess(w http.ResponseWriter, status int, data any, meta *model.Meta) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	var recErr *model.ReconciliationError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	} else if errors.Is(err, model.ErrConflictUnsolved) {
		// The item is still in the trash; the client retries with an explicit
		// conflict_resolution.
		status = http.StatusConflict
		body.Code = "CONFLICT_RESOLUTION_REQUIRED"
		body.Message = "Another session is active; pick replace or keep_as_history"
	} else if errors.As(err, &recErr) {
		// Partial restore: the item left the trash but live state is
		// incomplete. 502 tells the client this is not retryable here.
		status = http.StatusBadGateway
		body.Code = "RECONCILIATION_FAILED"
		body.Message = "Item removed from trash but could not be fully re-applied"
		body.Details = recErr.Error()
	} else if errors.Is(err, model.ErrTrashItemNotFound) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "Trash item not found"
	} else if errors.Is(err, model.ErrSessionNotFound) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "Session not found"
	} else if errors.Is(err, model.ErrNoActiveSession) {
		status = http.StatusConflict
		body.Code = "NO_ACTIVE_SESSION"
		body.Message = "No active session to restore into"
	} else if errors.Is(err, model.ErrStorageUnavailable) {
		status = http.StatusServiceUnavailable
		body.Code = "STORAGE_UNAVAILABLE"
		body.Message = "Trash storage is unavailable"
	} else if errors.Is(err, model.ErrUnauthorized) {
		status = http.StatusUnauthorized
		body.Code = "UNAUTHORIZED"
		body.Message = "Authentication required"
	} else if errors.Is(err, model.ErrInvalidInput) {
		status = http.StatusBadRequest
		body.Code = "BAD_REQUEST"
		body.Message = "Invalid input"
		body.Details = err.Error()
	} else {
		// Log unclassified errors so they are visible in container logs.
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   body,
	})
}

func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return apierror.BadRequest("Request body required", "")
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return apierror.BadRequest("Malformed JSON body", err.Error())
	}
	return nil
}
