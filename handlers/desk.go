package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"net/http"
	"time"

	"github.com/camden-git/retrocam/media"
	"github.com/camden-git/retrocam/models"
	"github.com/camden-git/retrocam/realtime"
	"github.com/camden-git/retrocam/repository"
	"github.com/camden-git/retrocam/services"
	"github.com/camden-git/retrocam/utils"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Exporter renders the desk into an encoded image
type Exporter interface {
	Render(ctx context.Context, records []models.PhotoRecord, viewport models.Viewport, background color.Color) ([]byte, error)
}

type DeskHandler struct {
	Lifecycle  *services.LifecycleService
	Repo       repository.PhotoRepositoryInterface
	Exporter   Exporter
	Publisher  services.Publisher
	Background string // default export background, #rrggbb
	Now        func() time.Time

	// ExportLimiter throttles renders; nil disables throttling
	ExportLimiter *rate.Limiter
}

func NewDeskHandler(lifecycle *services.LifecycleService, repo repository.PhotoRepositoryInterface, exporter Exporter, publisher services.Publisher, background string) *DeskHandler {
	if background == "" {
		background = media.DefaultBackground
	}
	return &DeskHandler{
		Lifecycle:  lifecycle,
		Repo:       repo,
		Exporter:   exporter,
		Publisher:  publisher,
		Background: background,
		Now:        time.Now,
	}
}

// GetDesk returns every record plus the live flag and viewport
func (dh *DeskHandler) GetDesk(w http.ResponseWriter, r *http.Request) {
	state := dh.Repo.Snapshot()
	if state.Photos == nil {
		state.Photos = []models.PhotoRecord{}
	}
	writeJSON(w, http.StatusOK, state)
}

type viewportRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// SetViewport stores the size of the shell's desk area
func (dh *DeskHandler) SetViewport(w http.ResponseWriter, r *http.Request) {
	var req viewportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid request body")
		return
	}
	if err := dh.Lifecycle.SetViewport(req.Width, req.Height); err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, dh.Repo.Snapshot().Viewport)
}

// Reset empties the desk. demo cards do not come back afterwards.
func (dh *DeskHandler) Reset(w http.ResponseWriter, r *http.Request) {
	removed := dh.Lifecycle.ResetAll()
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// Export renders the whole desk as a PNG attachment
func (dh *DeskHandler) Export(w http.ResponseWriter, r *http.Request) {
	if dh.ExportLimiter != nil && !dh.ExportLimiter.Allow() {
		w.Header().Set("Retry-After", "1")
		WriteAPIError(w, http.StatusTooManyRequests, CodeRateLimited, "Too many exports, slow down")
		return
	}
	hex := r.URL.Query().Get("background")
	if hex == "" {
		hex = dh.Background
	}
	background, err := media.ParseHexColor(hex)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidBackground, err.Error())
		return
	}

	state := dh.Repo.Snapshot()
	png, err := dh.Exporter.Render(r.Context(), state.Photos, state.Viewport, background)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			log.Printf("handlers: export abandoned by client: %v", err)
			return
		}
		log.Printf("handlers: export failed: %v", err)
		if dh.Publisher != nil {
			dh.Publisher.Broadcast(realtime.Event{Type: realtime.EventExportFailed, Error: err.Error()})
		}
		if media.IsRenderUnavailable(err) {
			WriteAPIError(w, http.StatusServiceUnavailable, CodeRenderUnavailable, "The desk could not be rendered")
			return
		}
		WriteAPIError(w, http.StatusInternalServerError, CodeInternalServerError, "Export failed")
		return
	}

	etag := utils.ContentETag(png)
	w.Header().Set("ETag", etag)
	if etagMatches(r, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", media.ExportMimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", media.ExportFilename(dh.Now())))
	w.Header().Set("Content-Length", fmt.Sprint(len(png)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		log.Printf("handlers: failed to write export: %v", err)
	}
}
