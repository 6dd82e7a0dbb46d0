package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/portablefs/portablefs/portable"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SendErrorResponse sends a standardized JSON error response
func SendErrorResponse(w http.ResponseWriter, logger *zap.Logger, err error, defaultStatusCode int) {
	w.Header().Set("Content-Type", "application/json")

	statusCode := defaultStatusCode
	errorCode := "INTERNAL_ERROR"

	var accessErr *portable.DeviceAccessError
	var ioErr *portable.ContentIOError
	switch {
	case errors.As(err, &accessErr):
		statusCode = http.StatusBadGateway
		errorCode = "DEVICE_UNAVAILABLE"
	case errors.As(err, &ioErr):
		statusCode = http.StatusBadGateway
		errorCode = "DEVICE_IO_ERROR"
	}

	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Code:    errorCode,
		Message: err.Error(),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("Failed to encode error response", zap.Error(err))
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintf(w, "Internal error occurred")
	}

	logger.Info("Error response sent",
		zap.String("error_code", errorCode),
		zap.Int("status_code", statusCode),
		zap.Error(err))
}

// SendNotFound sends the standard 404 response for paths that do not
// resolve to any content on the device.
func SendNotFound(w http.ResponseWriter, path string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(ErrorResponse{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("no content at %s", path),
	})
}

// SendJSONResponse sends a JSON response with any data structure
func SendJSONResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, `{"error":"Failed to encode response"}`)
	}
}

// SendJSONStatus sends a JSON response with an explicit status code.
func SendJSONStatus(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}
