package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/addrcluster/internal/model"
	"github.com/sells-group/addrcluster/internal/region"
	"github.com/sells-group/addrcluster/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the drawing upload server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}
		for _, dir := range []string{cfg.Upload.Dir, cfg.Output.Dir} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return eris.Wrapf(err, "create %s", dir)
			}
		}

		env, err := initEnv(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer env.Close()

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           newRouter(env),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

type server struct {
	env     *runEnv
	limiter *rate.Limiter
}

// newRouter wires the HTTP routes. Uploads are rate limited; every other
// route is read-only.
func newRouter(env *runEnv) http.Handler {
	s := &server{
		env:     env,
		limiter: rate.NewLimiter(rate.Limit(env.Config.Server.RateLimit), env.Config.Server.RateBurst),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: env.Config.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/regions", s.handleRegions)
	r.With(s.rateLimit).Post("/upload", s.handleUpload)
	r.Get("/download/{name}", s.handleDownload)
	r.Get("/runs", s.handleRuns)
	r.Get("/runs/{id}", s.handleRun)
	return r
}

func (s *server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleRegions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.env.Regions.All())
}

type uploadResponse struct {
	RunID    string              `json:"run_id"`
	Status   model.RunStatus     `json:"status"`
	Region   string              `json:"region"`
	Radius   float64             `json:"radius"`
	Record   *model.ResultRecord `json:"record"`
	Download string              `json:"download"`
}

func (s *server) handleUpload(w http.ResponseWriter, r *http.Request) {
	cfg := s.env.Config
	r.Body = http.MaxBytesReader(w, r.Body, int64(cfg.Upload.MaxMB)<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	if !strings.EqualFold(filepath.Ext(header.Filename), ".dxf") {
		writeError(w, http.StatusBadRequest, "file must be a .dxf drawing")
		return
	}

	var radius *float64
	if raw := strings.TrimSpace(r.FormValue("radius")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			writeError(w, http.StatusBadRequest, "radius must be a non-negative number")
			return
		}
		radius = &v
	}

	id := uuid.New().String()
	upload := filepath.Join(cfg.Upload.Dir, id+".dxf")
	if err := saveUpload(upload, file); err != nil {
		zap.L().Error("failed to store upload", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	defer os.Remove(upload)

	name := id + "_with_points.dxf"
	run, _, err := s.env.execute(r.Context(), job{
		ID:      id,
		Name:    filepath.Base(header.Filename),
		Drawing: upload,
		Region:  r.FormValue("region"),
		Output:  filepath.Join(cfg.Output.Dir, name),
		Radius:  radius,
	})
	if err != nil {
		status := statusFor(err)
		msg := "analysis failed"
		if status != http.StatusInternalServerError {
			msg = err.Error()
		}
		zap.L().Warn("upload analysis failed", zap.String("run_id", id), zap.Int("status", status), zap.Error(err))
		writeJSON(w, status, map[string]string{"error": msg, "run_id": id})
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		RunID:    run.ID,
		Status:   run.Status,
		Region:   run.Region,
		Radius:   run.Radius,
		Record:   run.Record,
		Download: "/download/" + name,
	})
}

func saveUpload(path string, src io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "create upload")
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return eris.Wrap(err, "write upload")
	}
	return eris.Wrap(f.Close(), "close upload")
}

func (s *server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		writeError(w, http.StatusBadRequest, "invalid file name")
		return
	}
	path := filepath.Join(s.env.Config.Output.Dir, name)
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Type", "application/dxf")
	http.ServeFile(w, r, path)
}

func (s *server) handleRuns(w http.ResponseWriter, r *http.Request) {
	filter := store.RunFilter{
		Status: model.RunStatus(r.URL.Query().Get("status")),
		Region: r.URL.Query().Get("region"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}

	runs, err := s.env.Store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *server) handleRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.env.Store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if eris.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		zap.L().Error("get run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get run failed")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// statusFor maps a run error to an HTTP status.
func statusFor(err error) int {
	switch {
	case eris.Is(err, model.ErrMalformedDrawing), eris.Is(err, model.ErrInvalidRecord):
		return http.StatusUnprocessableEntity
	case eris.Is(err, region.ErrUnknownRegion):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
