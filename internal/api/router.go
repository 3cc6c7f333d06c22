// Package api serves the vocabulary registry and cached segments over HTTP, read-only.
//
// No handler writes through the cache, but reads share the cache's integrity checks: a corrupt
// word, segment or note record met while serving a request is erased and reported as absent,
// so it gets extracted again the next time the segment is practiced.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Taichi-iskw/yt-vocab/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Vocabulary is the read side of the vocabulary cache
type Vocabulary interface {
	ListEntries(ctx context.Context) ([]model.VocabEntry, error)
	GetEntry(ctx context.Context, original string) (model.VocabEntry, error)
	GetSegmentVocabulary(ctx context.Context, videoID string, index int) ([]model.VocabEntry, bool, error)
	ListSegments(ctx context.Context, videoID string) ([]model.SegmentVocabList, error)
	GetNote(ctx context.Context, videoID string, index int) (model.SegmentNote, bool, error)
}

// App holds the handler dependencies
type App struct {
	Vocab Vocabulary
	Log   logrus.FieldLogger
	Now   func() time.Time
}

// NewRouter builds the HTTP routes
func NewRouter(app *App) http.Handler {
	if app.Now == nil {
		app.Now = time.Now
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(app.Log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", HealthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/words", app.ListWordsHandler)
		r.Get("/words/{original}", app.GetWordHandler)
		r.Get("/videos/{videoID}/segments", app.ListSegmentsHandler)
		r.Get("/videos/{videoID}/segments/{index}", app.GetSegmentHandler)
	})

	return r
}

// requestLogger logs one line per request through logrus
func requestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			log.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start),
				"request_id": middleware.GetReqID(r.Context()),
			}).Info("request")
		})
	}
}
