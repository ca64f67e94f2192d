package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"focalai/internal/gateway/entity"
	artifactrepo "focalai/internal/gateway/repository/artifact"
	idearepo "focalai/internal/gateway/repository/idea"
	"focalai/internal/gateway/service/credits"
	"focalai/internal/gateway/service/refinement"
	"focalai/internal/persona"
	"focalai/internal/refine"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// RefineHandler serves the JSON API.
type RefineHandler struct {
	svc *refinement.Service
}

func NewRefineHandler(svc *refinement.Service) *RefineHandler {
	return &RefineHandler{svc: svc}
}

type refineRequest struct {
	UserID string `json:"user_id"`
	Idea   string `json:"idea"`
	IdeaID string `json:"idea_id,omitempty"`
}

type feedbackRequest struct {
	UserID   string `json:"user_id"`
	IdeaID   string `json:"idea_id"`
	Feedback string `json:"feedback"`
}

// RefineResponse is the run result plus where it was stored.
type RefineResponse struct {
	refine.Result
	IdeaID           string            `json:"idea_id"`
	DocumentID       string            `json:"document_id,omitempty"`
	Iteration        int               `json:"iteration"`
	CreditsRemaining int               `json:"credits_remaining"`
	ArtifactURLs     map[string]string `json:"artifact_urls,omitempty"`
}

// NewRefineResponse flattens a service outcome.
func NewRefineResponse(out *refinement.Outcome) RefineResponse {
	if out == nil {
		return RefineResponse{}
	}
	return RefineResponse{
		Result:           out.Result,
		IdeaID:           out.Idea.ID,
		DocumentID:       out.Document.ID,
		Iteration:        out.Document.Iteration,
		CreditsRemaining: out.Balance,
		ArtifactURLs:     out.ArtifactURLs,
	}
}

func (h *RefineHandler) HandleRefine(w http.ResponseWriter, r *http.Request) {
	var in refineRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	out, err := h.svc.Refine(r.Context(), refinement.RefineRequest{
		UserID: in.UserID,
		Idea:   in.Idea,
		IdeaID: in.IdeaID,
	})
	h.writeOutcome(w, out, err)
}

func (h *RefineHandler) HandleFeedback(w http.ResponseWriter, r *http.Request) {
	var in feedbackRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	out, err := h.svc.Feedback(r.Context(), refinement.FeedbackRequest{
		UserID:   in.UserID,
		IdeaID:   in.IdeaID,
		Feedback: in.Feedback,
	})
	h.writeOutcome(w, out, err)
}

func (h *RefineHandler) writeOutcome(w http.ResponseWriter, out *refinement.Outcome, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, NewRefineResponse(out))
		return
	}
	if out != nil && errors.Is(err, refinement.ErrFailed) {
		writeJSON(w, StatusFor(err), NewRefineResponse(out))
		return
	}
	writeError(w, err)
}

func (h *RefineHandler) HandleIdeas(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	ideas, err := h.svc.History(r.Context(), q.Get("user_id"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": entity.NormalizeUserID(q.Get("user_id")),
		"ideas":   ideas,
	})
}

func (h *RefineHandler) HandleIdea(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.Detail(r.Context(), r.URL.Query().Get("user_id"), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *RefineHandler) HandleArtifact(w http.ResponseWriter, r *http.Request) {
	p := strings.TrimSpace(r.PathValue("path"))
	if p == "" || strings.Contains(p, "..") {
		http.Error(w, "invalid artifact path", http.StatusBadRequest)
		return
	}
	raw, err := h.svc.Artifact(r.Context(), r.URL.Query().Get("user_id"), r.PathValue("id"), p)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", artifactContentType(p))
	_, _ = w.Write(raw)
}

func (h *RefineHandler) HandleCredits(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user_id")
	bal, err := h.svc.Balance(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}
	txs, err := h.svc.Transactions(r.Context(), user, 20)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":      entity.NormalizeUserID(user),
		"balance":      bal,
		"transactions": txs,
	})
}

type personaView struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Focus string `json:"focus"`
}

func HandlePersonas(w http.ResponseWriter, _ *http.Request) {
	ps := persona.List()
	out := make([]personaView, 0, len(ps))
	for _, p := range ps {
		out = append(out, personaView{Key: p.Key, Name: p.Name, Focus: p.Focus})
	}
	writeJSON(w, http.StatusOK, map[string]any{"personas": out})
}

func HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// StatusFor maps service errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, refinement.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, credits.ErrInsufficient):
		return http.StatusPaymentRequired
	case errors.Is(err, refinement.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, idearepo.ErrNotFound), errors.Is(err, artifactrepo.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, refinement.ErrIdeaExists), errors.Is(err, refinement.ErrBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, StatusFor(err), map[string]any{
		"success": false,
		"error":   err.Error(),
	})
}

func artifactContentType(p string) string {
	switch {
	case strings.HasSuffix(p, ".md"):
		return "text/markdown; charset=utf-8"
	case strings.HasSuffix(p, ".html"):
		return "text/html; charset=utf-8"
	case strings.HasSuffix(p, ".yaml"), strings.HasSuffix(p, ".yml"):
		return "application/yaml"
	}
	return "application/octet-stream"
}
