package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/camden-git/retrocam/camera"
	"github.com/camden-git/retrocam/services"
	log "github.com/sirupsen/logrus"
)

// error codes returned in APIErrorDetail.Code
const (
	CodeInvalidRequest       = "invalid_request"
	CodeInvalidBackground    = "invalid_background"
	CodePhotoNotFound        = "photo_not_found"
	CodeCaptureBusy          = "capture_busy"
	CodeCameraPermission     = "camera_permission_denied"
	CodeCameraUnavailable    = "camera_unavailable"
	CodeCaptureNotReady      = "capture_not_ready"
	CodeImageUnavailable     = "image_unavailable"
	CodeRenderUnavailable    = "render_unavailable"
	CodeRateLimited          = "rate_limited"
	CodeInternalServerError  = "internal_error"
	CodeUnsupportedMediaType = "unsupported_media"
)

// APIErrorDetail represents a single error in the standardized error response.
type APIErrorDetail struct {
	Code   string `json:"code"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// APIErrorResponse represents the standardized error response body.
type APIErrorResponse struct {
	Errors []APIErrorDetail `json:"errors"`
}

// WriteAPIError writes a standardized error response with the given HTTP status, code, and detail.
func WriteAPIError(w http.ResponseWriter, httpStatus int, code string, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	resp := APIErrorResponse{
		Errors: []APIErrorDetail{
			{
				Code:   code,
				Status: strconv.Itoa(httpStatus),
				Detail: detail,
			},
		},
	}

	_ = json.NewEncoder(w).Encode(resp)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("Error encoding JSON response: %v", err)
		}
	}
}

// writeDomainError maps the service and camera sentinels onto API errors
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrPhotoNotFound):
		WriteAPIError(w, http.StatusNotFound, CodePhotoNotFound, err.Error())
	case errors.Is(err, services.ErrCaptureBusy):
		WriteAPIError(w, http.StatusConflict, CodeCaptureBusy, err.Error())
	case errors.Is(err, camera.ErrPermissionDenied):
		WriteAPIError(w, http.StatusForbidden, CodeCameraPermission, "Camera access was denied")
	case errors.Is(err, camera.ErrDeviceUnavailable):
		WriteAPIError(w, http.StatusServiceUnavailable, CodeCameraUnavailable, "No camera could be opened")
	case errors.Is(err, camera.ErrCaptureNotReady):
		w.Header().Set("Retry-After", "1")
		WriteAPIError(w, http.StatusServiceUnavailable, CodeCaptureNotReady, "Camera is not ready yet, try again")
	default:
		log.Printf("handlers: unexpected error: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, CodeInternalServerError, "Internal server error")
	}
}

// etagMatches reports whether the request's If-None-Match already names etag
func etagMatches(r *http.Request, etag string) bool {
	inm := r.Header.Get("If-None-Match")
	return inm != "" && (inm == "*" || inm == etag)
}
