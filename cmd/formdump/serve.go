package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/mazrean/streamform"
	httpform "github.com/mazrean/streamform/http"
)

type ServeCmd struct {
	Addr   string `default:":8080" help:"Address to listen on."`
	OutDir string `type:"path" default:"uploads" help:"Directory uploaded files are written to."`

	DecoderFlags `embed:""`
}

func (c *ServeCmd) Run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := os.MkdirAll(c.OutDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	srv := &http.Server{
		Addr:              c.Addr,
		Handler:           c.handler(logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", c.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}

	return nil
}

func (c *ServeCmd) handler(logger *slog.Logger) http.Handler {
	var uploads atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, req *http.Request) {
		id := uploads.Add(1)
		reqLogger := logger.With(slog.Int64("upload", id))

		dir := filepath.Join(c.OutDir, strconv.FormatInt(id, 10))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			reqLogger.Error("failed to create upload directory", slog.Any("error", err))
			http.Error(w, "failed to store upload", http.StatusInternalServerError)
			return
		}

		d := newDumper(dir, reqLogger)
		err := d.finish(httpform.Decode(req, d, c.options(reqLogger)...))

		var decodeErr *streamform.DecodeError
		switch {
		case errors.Is(err, http.ErrNotMultipart):
			http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
			return
		case errors.As(err, &decodeErr):
			reqLogger.Warn("malformed upload", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		case err != nil:
			reqLogger.Error("failed to decode upload", slog.Any("error", err))
			http.Error(w, "failed to decode upload", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(d.summary); err != nil {
			reqLogger.Error("failed to write response", slog.Any("error", err))
		}
	})

	return mux
}
