package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"visa-checker/internal/app"
	"visa-checker/internal/domain"
)

// LiveCounter reports open sessions across instances.
type LiveCounter interface {
	Live(ctx context.Context) (int, error)
}

// API exposes the questionnaire over JSON/HTTP.
type API struct {
	service        *app.WizardService
	defaultCatalog string
	live           LiveCounter
}

func NewAPI(service *app.WizardService, defaultCatalog string, live LiveCounter) *API {
	return &API{service: service, defaultCatalog: defaultCatalog, live: live}
}

// Routes mounts the API under r.
func (a *API) Routes(r chi.Router) {
	r.Get("/catalogs/{catalogID}", a.getCatalog)
	r.Get("/stats", a.stats)
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", a.startSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", a.getSession)
			r.Delete("/", a.endSession)
			r.Post("/answer", a.answer)
			r.Post("/back", a.back)
			r.Post("/reset", a.reset)
			r.Get("/result", a.result)
		})
	})
}

type startRequest struct {
	CatalogID string `json:"catalogId"`
}

type answerRequest struct {
	Value *bool `json:"value"`
}

func (a *API) getCatalog(w http.ResponseWriter, r *http.Request) {
	catalog, err := a.service.Catalog(r.Context(), chi.URLParam(r, "catalogID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, catalog.Definition())
}

func (a *API) startSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid request body"})
			return
		}
	}
	if req.CatalogID == "" {
		req.CatalogID = a.defaultCatalog
	}
	snap, err := a.service.Start(r.Context(), req.CatalogID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, snap)
}

func (a *API) getSession(w http.ResponseWriter, r *http.Request) {
	snap, err := a.service.State(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (a *API) endSession(w http.ResponseWriter, r *http.Request) {
	a.service.End(r.Context(), chi.URLParam(r, "sessionID"))
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Value == nil {
		respondJSON(w, http.StatusBadRequest, errorPayload{Message: `body must be {"value": true|false}`})
		return
	}
	snap, err := a.service.Answer(r.Context(), chi.URLParam(r, "sessionID"), *req.Value)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (a *API) back(w http.ResponseWriter, r *http.Request) {
	snap, err := a.service.Back(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (a *API) reset(w http.ResponseWriter, r *http.Request) {
	snap, err := a.service.Reset(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (a *API) result(w http.ResponseWriter, r *http.Request) {
	outcome, err := a.service.Result(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, outcome)
}

func (a *API) stats(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{"local": a.service.Open()}
	if a.live != nil {
		if n, err := a.live.Live(r.Context()); err == nil {
			out["live"] = n
		}
	}
	respondJSON(w, http.StatusOK, out)
}

func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrCatalogNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrPrecondition), errors.Is(err, domain.ErrOutOfRange):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidCatalog):
		status = http.StatusUnprocessableEntity
	}
	respondJSON(w, status, errorPayload{Message: err.Error()})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}
