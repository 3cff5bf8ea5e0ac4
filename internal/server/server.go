// Package server implements the transcription proxy: it accepts one WAV
// container per request and forwards it to a speech-to-text provider.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/leonardotrapani/voxchunk/internal/transcriber"
	"github.com/leonardotrapani/voxchunk/internal/wav"
)

const (
	// ErrorMessage is the only provider failure detail returned to clients.
	ErrorMessage      = "Error transcribing audio"
	missingFieldError = "missing file field"
	FileField         = "file"
)

type Config struct {
	Address         string
	StaticDir       string
	VendorDir       string
	MaxUploadBytes  int64
	ProviderTimeout time.Duration
}

// AdapterFunc resolves the provider adapter for one request, so credential
// and model changes apply without a restart.
type AdapterFunc func() (transcriber.Adapter, error)

type Server struct {
	config  Config
	adapter AdapterFunc
	metrics *Metrics
	handler http.Handler
	http    *http.Server
}

func New(config Config, adapter AdapterFunc) *Server {
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = 32 << 20
	}
	if config.ProviderTimeout <= 0 {
		config.ProviderTimeout = 60 * time.Second
	}

	s := &Server{
		config:  config,
		adapter: adapter,
		metrics: NewMetrics(),
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)
	s.handler = mux

	s.http = &http.Server{
		Addr:              config.Address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/transcribe", s.withMetrics("/transcribe", s.handleTranscribe))
	mux.HandleFunc("/healthz", s.withMetrics("/healthz", s.handleHealth))
	mux.Handle("/metrics", s.metrics.Handler())

	if s.config.VendorDir != "" {
		files := http.StripPrefix("/vendor/", http.FileServer(http.Dir(s.config.VendorDir)))
		mux.HandleFunc("/vendor/", s.withMetrics("/vendor/", files.ServeHTTP))
	}
	if s.config.StaticDir != "" {
		files := http.FileServer(http.Dir(s.config.StaticDir))
		mux.HandleFunc("/", s.withMetrics("/", files.ServeHTTP))
	} else {
		mux.HandleFunc("/", s.withMetrics("/", http.NotFound))
	}
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// ListenAndServe blocks until the server stops. A graceful Shutdown is not
// reported as an error.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.Address, err)
	}
	return s.Serve(ln)
}

func (s *Server) Serve(ln net.Listener) error {
	log.Printf("server: listening on http://%s", ln.Addr())
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Printf("server: shutting down")
	return s.http.Shutdown(ctx)
}

func (s *Server) withMetrics(route string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		handler(ww, r)

		s.metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(ww.statusCode), time.Since(start).Seconds())
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": missingFieldError})
			return
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || r.ContentLength > s.config.MaxUploadBytes {
			log.Printf("server: upload exceeds %d bytes", s.config.MaxUploadBytes)
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "upload too large"})
			return
		}
		log.Printf("server: invalid multipart body: %v", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart body"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(FileField)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": missingFieldError})
		return
	}
	defer file.Close()

	container, err := io.ReadAll(file)
	if err != nil {
		log.Printf("server: failed to read %s: %v", header.Filename, err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable file field"})
		return
	}
	s.metrics.BytesReceived.Add(float64(len(container)))

	if h, err := wav.ParseHeader(container); err != nil {
		log.Printf("server: %s is not a PCM WAV container, forwarding anyway: %v", header.Filename, err)
	} else {
		log.Printf("server: received %s (%d bytes, %v at %d Hz)", header.Filename, len(container), h.Duration(), h.SampleRate)
	}

	start := time.Now()
	text, err := s.transcribe(r.Context(), container, header.Filename)
	s.metrics.RecordTranscription(err == nil, time.Since(start).Seconds())
	if err != nil {
		log.Printf("server: %s: %v", ErrorMessage, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": ErrorMessage})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"transcript": text})
}

func (s *Server) transcribe(ctx context.Context, container []byte, filename string) (string, error) {
	adapter, err := s.adapter()
	if err != nil {
		return "", fmt.Errorf("resolve adapter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.ProviderTimeout)
	defer cancel()

	return adapter.Transcribe(ctx, container, filename)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("server: failed to write response: %v", err)
	}
}
