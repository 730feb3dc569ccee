package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camden-git/retrocam/camera"
	"github.com/camden-git/retrocam/config"
	"github.com/camden-git/retrocam/handlers"
	"github.com/camden-git/retrocam/media"
	"github.com/camden-git/retrocam/metrics"
	"github.com/camden-git/retrocam/models"
	"github.com/camden-git/retrocam/realtime"
	"github.com/camden-git/retrocam/repository"
	"github.com/camden-git/retrocam/services"
	"github.com/camden-git/retrocam/workers"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	mediaSubDirs := map[media.AssetType]string{
		media.AssetTypeDemo: cfg.DemoSubDir,
	}
	mediaStore, err := media.NewLocalStorage(cfg.MediaStoragePath, mediaSubDirs)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize media store: %v", err)
	}
	if _, err := mediaStore.EnsureDir(media.AssetTypeDemo); err != nil {
		log.Fatalf("FATAL: Failed to create demo asset directory: %v", err)
	}

	manifest, err := config.LoadDemoManifest(cfg.DemoManifestPath)
	if err != nil {
		log.Printf("Warning: ignoring demo manifest: %v", err)
	}
	demoAssets, err := mediaStore.List(media.AssetTypeDemo)
	if err != nil {
		log.Printf("Warning: failed to list demo assets: %v", err)
	}
	demoImages := config.DemoImages(manifest, demoAssets, cfg.DemoImageURLs)
	log.Printf("Using %d demo image(s)", len(demoImages))

	resolver := media.NewResolver(mediaStore, &http.Client{Timeout: 15 * time.Second})
	fonts, err := media.LoadFonts(cfg.FontPath)
	if err != nil {
		// exports answer render_unavailable until this is fixed
		log.Printf("ERROR: Failed to load caption fonts: %v", err)
	}
	compositor := media.NewCompositor(resolver, fonts, cfg.MaxExportSide)
	processor := media.NewProcessor(cfg.StillSize, cfg.StillQuality)

	repo := repository.NewPhotoRepository(models.Viewport{Width: cfg.ViewportWidth, Height: cfg.ViewportHeight})

	hub := realtime.NewHub()
	go hub.Run()
	defer hub.Stop()

	developer := workers.NewDeveloper(hub, cfg.EntranceDuration, cfg.FrameInterval)
	lifecycle := services.NewLifecycleService(repo, realtime.NewShutter(hub), developer, hub, services.Options{
		DemoImages:   demoImages,
		HintDelay:    cfg.HintDelay,
		HintDuration: cfg.HintDuration,
	})
	developer.Start(lifecycle.OnSettle)
	defer developer.Stop()

	lifecycle.SeedDemoContent()

	var device camera.Device
	if cfg.CameraEnabled {
		webcam := camera.NewWebcam(cfg.CameraDeviceID, cfg.StillSize)
		if err := webcam.Acquire(context.Background()); err != nil {
			log.Printf("Warning: camera not ready, captures will retry: %v", err)
		}
		defer webcam.Release()
		device = webcam
	} else {
		log.Printf("Camera disabled; stills must be uploaded by the shell")
	}

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "If-None-Match", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Content-Disposition", "ETag"},
		AllowCredentials: true,
		MaxAge:           300,
	}

	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.InstrumentHandler)
	r.Use(corsHandler.Handler)

	deskHandler := handlers.NewDeskHandler(lifecycle, repo, compositor, hub, cfg.BackgroundColor)
	deskHandler.ExportLimiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.ExportsPerMin)), cfg.ExportBurst)
	photoHandler := handlers.NewPhotoHandler(lifecycle, repo, resolver, processor, device, hub)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		handlers.MountAPI(r, deskHandler, photoHandler)

		demoPrefix := fmt.Sprintf("/api/%s/", cfg.DemoSubDir)
		r.Get(fmt.Sprintf("/%s/*", cfg.DemoSubDir), handlers.AssetServer(mediaStore, demoPrefix, cfg.DemoSubDir))
		log.Printf("Registered demo asset server at %s*", demoPrefix)
	})

	r.Get("/ws", hub.ServeWS)
	r.Handle("/metrics", metrics.Handler())

	serverAddr := ":" + cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Server listening on %s", serverAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}
