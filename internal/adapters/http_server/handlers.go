package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"review_monitor/internal/app"
	"review_monitor/internal/domain"
)

type Handlers struct {
	Q      *app.QueryService
	C      *app.CommandService
	Ingest *app.IngestionService
	Repair *app.RepairService
	Roster *app.RosterService
	// JobTimeout bounds background ingestion runs; zero means no limit.
	JobTimeout time.Duration

	jobs sync.WaitGroup
}

// Wait blocks until background jobs started by the handlers finish or ctx
// is done.
func (h *Handlers) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.jobs.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

var validate = validator.New()

const maxBody = 1 << 20

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/v1/reviews", func(r chi.Router) {
		r.Get("/", h.listReviews)
		r.Get("/inbox", h.inbox)
		r.Get("/crises", h.crises)
		r.Get("/negative", h.negatives)
		r.Post("/read-all", h.markAllRead)
		r.Get("/{hash}/reply", h.replyForReview)
		r.Post("/{hash}/read", h.markRead)
		r.Put("/{hash}/category", h.setCategory)
		r.Put("/{hash}/cleaner", h.assignCleaner)
		r.Post("/{hash}/resolve", h.resolveCrisis)
	})
	s.mux.Get("/v1/crises/resolutions", h.resolutions)
	s.mux.Post("/v1/replies", h.composeReply)
	s.mux.Get("/v1/insights/sentiment", h.sentiment)
	s.mux.Get("/v1/insights/cleaners", h.cleanerStats)
	s.mux.Post("/v1/jobs/ingest", h.runIngest)
	s.mux.Post("/v1/jobs/repair", h.runRepair)

	s.mux.Get("/v1/accommodations", h.listAccommodations)
	s.mux.Post("/v1/accommodations", h.addAccommodation)
	s.mux.Post("/v1/accommodations/import", h.importAccommodations)
	s.mux.Delete("/v1/accommodations/{name}", h.removeAccommodation)
	s.mux.Get("/v1/cleaners", h.listCleaners)
	s.mux.Post("/v1/cleaners", h.addCleaner)
	s.mux.Delete("/v1/cleaners/{name}", h.removeCleaner)
}

/********** response helpers **********/

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain errors to problem responses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidCategory),
		errors.Is(err, domain.ErrUnknownCleaner):
		writeProblem(w, http.StatusBadRequest, "Invalid Request", err.Error())
	case errors.Is(err, domain.ErrRunInProgress):
		writeProblem(w, http.StatusConflict, "Run In Progress", err.Error())
	case errors.Is(err, domain.ErrLocalIO):
		log.Error().Err(err).Msg("local store failure")
		writeProblem(w, http.StatusServiceUnavailable, "Storage Unavailable", "the review table could not be read or written")
	default:
		log.Error().Err(err).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "unexpected error")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	return `W/"` + hex.EncodeToString(sum[:]) + `"`, body
}

// writeView answers a GET with a weak ETag and honors If-None-Match.
func writeView(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write JSON body")
	}
}

// decode reads a JSON body into dst and validates its struct tags.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return false
	}
	return true
}

func windowParam(w http.ResponseWriter, r *http.Request) (domain.Window, bool) {
	win, err := domain.ParseWindow(r.URL.Query().Get("window"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid window", "window must be one of all, week, month, quarter, year")
		return "", false
	}
	return win, true
}

func limitParam(w http.ResponseWriter, r *http.Request, def, max int) (int, bool) {
	ls := r.URL.Query().Get("limit")
	if ls == "" {
		return def, true
	}
	l, err := strconv.Atoi(ls)
	if err != nil || l <= 0 || l > max {
		writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and "+strconv.Itoa(max))
		return 0, false
	}
	return l, true
}

/********** review views **********/

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	win, ok := windowParam(w, r)
	if !ok {
		return
	}
	f := app.ListFilter{Window: win, Listing: strings.TrimSpace(r.URL.Query().Get("listing"))}
	if ps := r.URL.Query().Get("platform"); ps != "" {
		p, ok := domain.ParsePlatform(ps)
		if !ok {
			writeProblem(w, http.StatusBadRequest, "Invalid platform", "platform must be airbnb or booking")
			return
		}
		f.Platform = p
	}
	out, err := h.Q.List(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeView(w, r, out)
}

func (h *Handlers) inbox(w http.ResponseWriter, r *http.Request) {
	win, ok := windowParam(w, r)
	if !ok {
		return
	}
	out, err := h.Q.Inbox(r.Context(), win)
	if err != nil {
		writeError(w, err)
		return
	}
	writeView(w, r, out)
}

func (h *Handlers) crises(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.Crises(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeView(w, r, out)
}

func (h *Handlers) negatives(w http.ResponseWriter, r *http.Request) {
	win, ok := windowParam(w, r)
	if !ok {
		return
	}
	limit, ok := limitParam(w, r, 20, 200)
	if !ok {
		return
	}
	out, err := h.Q.Negatives(r.Context(), win, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeView(w, r, out)
}

func (h *Handlers) replyForReview(w http.ResponseWriter, r *http.Request) {
	txt, err := h.Q.Reply(r.Context(), chi.URLParam(r, "hash"), r.URL.Query().Get("guest"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeView(w, r, map[string]string{"reply": txt})
}

type composeRequest struct {
	Text     string `json:"text" validate:"required"`
	Platform string `json:"platform" validate:"required"`
	Guest    string `json:"guest"`
}

func (h *Handlers) composeReply(w http.ResponseWriter, r *http.Request) {
	var req composeRequest
	if !decode(w, r, &req) {
		return
	}
	p, ok := domain.ParsePlatform(req.Platform)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid platform", "platform must be airbnb or booking")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": h.Q.Compose(req.Text, p, req.Guest)})
}

func (h *Handlers) sentiment(w http.ResponseWriter, r *http.Request) {
	win, ok := windowParam(w, r)
	if !ok {
		return
	}
	out, err := h.Q.Sentiment(r.Context(), win)
	if err != nil {
		writeError(w, err)
		return
	}
	writeView(w, r, out)
}

func (h *Handlers) cleanerStats(w http.ResponseWriter, r *http.Request) {
	win, ok := windowParam(w, r)
	if !ok {
		return
	}
	out, err := h.Q.CleanerStats(r.Context(), win)
	if err != nil {
		writeError(w, err)
		return
	}
	writeView(w, r, out)
}

func (h *Handlers) resolutions(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(w, r, 50, 500)
	if !ok {
		return
	}
	out, err := h.Q.Resolutions(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeView(w, r, out)
}

/********** review commands **********/

func (h *Handlers) markRead(w http.ResponseWriter, r *http.Request) {
	if err := h.C.MarkRead(r.Context(), chi.URLParam(r, "hash")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) markAllRead(w http.ResponseWriter, r *http.Request) {
	win, ok := windowParam(w, r)
	if !ok {
		return
	}
	n, err := h.C.MarkAllRead(r.Context(), win)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

type categoryRequest struct {
	Category string `json:"category" validate:"required"`
}

func (h *Handlers) setCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.C.SetCategory(r.Context(), chi.URLParam(r, "hash"), req.Category); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// cleanerRequest with an empty name unassigns.
type cleanerRequest struct {
	Cleaner string `json:"cleaner"`
}

func (h *Handlers) assignCleaner(w http.ResponseWriter, r *http.Request) {
	var req cleanerRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.C.AssignCleaner(r.Context(), chi.URLParam(r, "hash"), req.Cleaner); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type resolveRequest struct {
	ResolvedBy string `json:"resolved_by" validate:"required"`
	Note       string `json:"note" validate:"max=2000"`
}

func (h *Handlers) resolveCrisis(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if !decode(w, r, &req) {
		return
	}
	ev, err := h.C.ResolveCrisis(r.Context(), chi.URLParam(r, "hash"), req.ResolvedBy, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	if ev == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

/********** jobs **********/

// runIngest starts a batch in the background and answers 202. With
// ?wait=true the batch runs inline and the report is returned.
func (h *Handlers) runIngest(w http.ResponseWriter, r *http.Request) {
	listing := strings.TrimSpace(r.URL.Query().Get("listing"))
	if r.URL.Query().Get("wait") == "true" {
		rep, err := h.Ingest.Run(r.Context(), listing)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	cancel := context.CancelFunc(func() {})
	if h.JobTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, h.JobTimeout)
	}
	h.jobs.Add(1)
	go func() {
		defer h.jobs.Done()
		defer cancel()
		rep, err := h.Ingest.Run(ctx, listing)
		if err != nil {
			log.Error().Err(err).Str("run_id", rep.RunID).Str("listing", listing).Msg("background ingestion failed")
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started", "listing": listing})
}

func (h *Handlers) runRepair(w http.ResponseWriter, r *http.Request) {
	rep, err := h.Repair.Run(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

/********** roster **********/

func (h *Handlers) listAccommodations(w http.ResponseWriter, r *http.Request) {
	out, err := h.Roster.Accommodations(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeView(w, r, out)
}

type accommodationRequest struct {
	Name       string `json:"name" validate:"required"`
	AirbnbURL  string `json:"airbnb" validate:"omitempty,url"`
	BookingURL string `json:"booking" validate:"omitempty,url"`
}

func (h *Handlers) addAccommodation(w http.ResponseWriter, r *http.Request) {
	var req accommodationRequest
	if !decode(w, r, &req) {
		return
	}
	a := domain.Accommodation{Name: req.Name, AirbnbURL: req.AirbnbURL, BookingURL: req.BookingURL}
	if err := h.Roster.AddAccommodation(r.Context(), a); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// importAccommodations takes a plain-text paste, one accommodation per line.
func (h *Handlers) importAccommodations(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	n, err := h.Roster.Import(r.Context(), string(body))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": n})
}

func (h *Handlers) removeAccommodation(w http.ResponseWriter, r *http.Request) {
	if err := h.Roster.RemoveAccommodation(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) listCleaners(w http.ResponseWriter, r *http.Request) {
	out, err := h.Roster.Cleaners(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeView(w, r, out)
}

type cleanerNameRequest struct {
	Name string `json:"name" validate:"required"`
}

func (h *Handlers) addCleaner(w http.ResponseWriter, r *http.Request) {
	var req cleanerNameRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.Roster.AddCleaner(r.Context(), req.Name); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) removeCleaner(w http.ResponseWriter, r *http.Request) {
	if err := h.Roster.RemoveCleaner(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
