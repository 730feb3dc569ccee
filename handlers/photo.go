package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/camden-git/retrocam/camera"
	"github.com/camden-git/retrocam/media"
	"github.com/camden-git/retrocam/metrics"
	"github.com/camden-git/retrocam/models"
	"github.com/camden-git/retrocam/realtime"
	"github.com/camden-git/retrocam/repository"
	"github.com/camden-git/retrocam/services"
	"github.com/camden-git/retrocam/utils"
	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

// ImageFetcher returns the encoded bytes behind an image reference
type ImageFetcher interface {
	Fetch(ctx context.Context, ref models.ImageRef) ([]byte, error)
}

type PhotoHandler struct {
	Lifecycle *services.LifecycleService
	Repo      repository.PhotoRepositoryInterface
	Images    ImageFetcher
	Processor *media.Processor
	Camera    camera.Device // nil when no local camera is configured
	Publisher services.Publisher
}

func NewPhotoHandler(lifecycle *services.LifecycleService, repo repository.PhotoRepositoryInterface, images ImageFetcher, processor *media.Processor, device camera.Device, publisher services.Publisher) *PhotoHandler {
	return &PhotoHandler{
		Lifecycle: lifecycle,
		Repo:      repo,
		Images:    images,
		Processor: processor,
		Camera:    device,
		Publisher: publisher,
	}
}

// AcquireCamera (re)opens the local camera; the shell's retry button calls it
func (ph *PhotoHandler) AcquireCamera(w http.ResponseWriter, r *http.Request) {
	if ph.Camera == nil {
		WriteAPIError(w, http.StatusServiceUnavailable, CodeCameraUnavailable, "No camera configured")
		return
	}
	if err := ph.Camera.Acquire(r.Context()); err != nil {
		ph.reportCameraError(err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

// Capture takes a still from the local camera and puts a new card on the desk
func (ph *PhotoHandler) Capture(w http.ResponseWriter, r *http.Request) {
	if ph.Camera == nil {
		WriteAPIError(w, http.StatusServiceUnavailable, CodeCameraUnavailable, "No camera configured")
		return
	}
	// the lifecycle gate is authoritative; this only saves grabbing a frame
	if ph.Lifecycle.IsDeveloping() {
		metrics.RecordCapture(metrics.CaptureGated)
		writeDomainError(w, services.ErrCaptureBusy)
		return
	}

	img, err := ph.Camera.CaptureStill(r.Context())
	if err != nil {
		if errors.Is(err, camera.ErrCaptureNotReady) {
			metrics.RecordCapture(metrics.CaptureNotReady)
		} else {
			metrics.RecordCapture(metrics.CaptureFailed)
		}
		ph.reportCameraError(err)
		writeDomainError(w, err)
		return
	}

	still, err := ph.Processor.EncodeStill(img)
	if err != nil {
		metrics.RecordCapture(metrics.CaptureFailed)
		log.Printf("handlers: failed to encode still: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, CodeInternalServerError, "Failed to process still")
		return
	}
	ph.createPhoto(w, still)
}

// Upload accepts a still captured by the browser shell (multipart field "image")
func (ph *PhotoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, media.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(media.MaxUploadBytes); err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, "Expected a multipart form with an image field")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, "Missing image field")
		return
	}
	defer file.Close()

	still, err := ph.Processor.PrepareUpload(file)
	if err != nil {
		metrics.RecordCapture(metrics.CaptureFailed)
		log.Printf("handlers: rejected upload %q: %v", header.Filename, err)
		WriteAPIError(w, http.StatusUnsupportedMediaType, CodeUnsupportedMediaType, "The uploaded file is not a usable image")
		return
	}
	ph.createPhoto(w, still)
}

func (ph *PhotoHandler) createPhoto(w http.ResponseWriter, still models.ImageRef) {
	photo, err := ph.Lifecycle.Capture(still)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, photo)
}

func (ph *PhotoHandler) reportCameraError(err error) {
	if ph.Publisher == nil {
		return
	}
	ph.Publisher.Broadcast(realtime.Event{Type: realtime.EventCameraProblem, Error: err.Error()})
}

// GetImage serves the raw image of a card
func (ph *PhotoHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	photo, err := ph.Repo.GetByID(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	data, err := ph.Images.Fetch(r.Context(), photo.Image)
	if err != nil {
		log.WithField("photo_id", id).Warnf("handlers: image unavailable: %v", err)
		WriteAPIError(w, http.StatusBadGateway, CodeImageUnavailable, "The image for this photo could not be loaded")
		return
	}

	etag := utils.ContentETag(data)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if etagMatches(r, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	contentType := photo.Image.MimeType
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("handlers: failed to write image for %s: %v", id, err)
	}
}

type captionsRequest struct {
	Title *string `json:"title"`
	Date  *string `json:"date"`
}

// UpdateCaptions stores the captions edited on a card
func (ph *PhotoHandler) UpdateCaptions(w http.ResponseWriter, r *http.Request) {
	var req captionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid request body")
		return
	}
	photo, err := ph.Lifecycle.UpdateCaptions(chi.URLParam(r, "id"), req.Title, req.Date)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, photo)
}

// Settle is the shell telling us a card finished its entrance animation
func (ph *PhotoHandler) Settle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := ph.Repo.GetByID(id); err != nil {
		writeDomainError(w, err)
		return
	}
	changed := ph.Lifecycle.OnSettle(id)
	photo, err := ph.Repo.GetByID(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"changed": changed, "photo": photo})
}

// DragStart lifts the card above everything else
func (ph *PhotoHandler) DragStart(w http.ResponseWriter, r *http.Request) {
	photo, err := ph.Lifecycle.BringToFront(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, photo)
}

type dragEndRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// DragEnd applies the accumulated drag offset to the card position
func (ph *PhotoHandler) DragEnd(w http.ResponseWriter, r *http.Request) {
	var req dragEndRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid request body")
		return
	}
	photo, err := ph.Lifecycle.Move(chi.URLParam(r, "id"), req.DX, req.DY)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, photo)
}
