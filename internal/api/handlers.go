package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Taichi-iskw/yt-vocab/internal/errors"
	"github.com/Taichi-iskw/yt-vocab/internal/model"
	"github.com/Taichi-iskw/yt-vocab/internal/scheduler"
	"github.com/go-chi/chi/v5"
)

// segmentResponse is the body of GET /api/videos/{videoID}/segments/{index}
type segmentResponse struct {
	VideoID      string             `json:"videoId"`
	SegmentIndex int                `json:"segmentIndex"`
	Words        []model.VocabEntry `json:"words"`
	Note         *model.SegmentNote `json:"note,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// ListWordsHandler returns the registry. ?due=true keeps only words practicable now
// (never practiced, or due).
func (app *App) ListWordsHandler(w http.ResponseWriter, r *http.Request) {
	entries, err := app.Vocab.ListEntries(r.Context())
	if err != nil {
		app.writeError(w, err)
		return
	}

	if due, _ := strconv.ParseBool(r.URL.Query().Get("due")); due {
		now := app.Now()
		filtered := make([]model.VocabEntry, 0, len(entries))
		for _, e := range entries {
			if e.IsNew() || scheduler.IsDue(*e.Schedule, now) {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	writeJSON(w, http.StatusOK, entries)
}

func (app *App) GetWordHandler(w http.ResponseWriter, r *http.Request) {
	original, err := url.PathUnescape(chi.URLParam(r, "original"))
	if err != nil {
		app.writeError(w, errors.Wrap(err, errors.CodeInvalidArg, "malformed word"))
		return
	}

	entry, err := app.Vocab.GetEntry(r.Context(), original)
	if err != nil {
		app.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (app *App) ListSegmentsHandler(w http.ResponseWriter, r *http.Request) {
	lists, err := app.Vocab.ListSegments(r.Context(), chi.URLParam(r, "videoID"))
	if err != nil {
		app.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lists)
}

func (app *App) GetSegmentHandler(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		app.writeError(w, errors.New(errors.CodeInvalidArg, "segment index must be a non-negative integer"))
		return
	}

	entries, ok, err := app.Vocab.GetSegmentVocabulary(r.Context(), videoID, index)
	if err != nil {
		app.writeError(w, err)
		return
	}
	if !ok {
		app.writeError(w, errors.New(errors.CodeNotFound, "segment has not been practiced yet"))
		return
	}

	resp := segmentResponse{VideoID: videoID, SegmentIndex: index, Words: entries}
	if note, ok, err := app.Vocab.GetNote(r.Context(), videoID, index); err == nil && ok {
		resp.Note = &note
	}
	writeJSON(w, http.StatusOK, resp)
}

func (app *App) writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Code: errors.CodeInternal, Message: "internal error"}
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, errors.CodeNotFound):
		resp = errorResponse{Code: errors.CodeNotFound, Message: err.Error()}
		status = http.StatusNotFound
	case errors.Is(err, errors.CodeInvalidArg):
		resp = errorResponse{Code: errors.CodeInvalidArg, Message: err.Error()}
		status = http.StatusBadRequest
	default:
		app.Log.WithError(err).Error("request failed")
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
