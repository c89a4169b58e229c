package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fpldraft/go/internal/draft/pick"
)

// UserIDHeader carries the caller identity for the default Identity.
const UserIDHeader = "X-User-ID"

// retryableMessage is shown for storage faults; the client may simply retry.
const retryableMessage = "Something went wrong saving your pick. Please try again."

// DraftApp defines what the HTTP service needs from the coordinator
type DraftApp interface {
	SubmitPick(ctx context.Context, divisionID, userID string, playerID int) (*SubmitPickResult, error)
	LoadDraftData(ctx context.Context, divisionID string) (*DraftData, error)
	Poll(ctx context.Context, divisionID string, lastKnownPickCount int) (*PollResult, error)
}

// Identity resolves the authenticated user of a request, "" when unknown.
type Identity func(r *http.Request) string

// HeaderIdentity trusts the X-User-ID header set by the auth proxy.
func HeaderIdentity(r *http.Request) string {
	return r.Header.Get(UserIDHeader)
}

// Service exposes the coordinator over HTTP
type Service struct {
	app      DraftApp
	identity Identity
}

// NewService creates a new draft HTTP service
func NewService(app DraftApp, identity Identity) *Service {
	if identity == nil {
		identity = HeaderIdentity
	}
	return &Service{app: app, identity: identity}
}

// RegisterRoutes mounts the draft endpoints on mux
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/divisions/{divisionID}/picks", s.HandleSubmitPick)
	mux.HandleFunc("GET /api/divisions/{divisionID}/draft", s.HandleLoadDraftData)
	mux.HandleFunc("GET /api/divisions/{divisionID}/poll", s.HandlePoll)
}

type submitPickRequest struct {
	PlayerID int `json:"playerId"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleSubmitPick handles POST /api/divisions/{divisionID}/picks
func (s *Service) HandleSubmitPick(w http.ResponseWriter, r *http.Request) {
	divisionID := r.PathValue("divisionID")
	userID := s.identity(r)
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing user identity"})
		return
	}

	var req submitPickRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil || req.PlayerID <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "playerId is required"})
		return
	}

	res, err := s.app.SubmitPick(r.Context(), divisionID, userID, req.PlayerID)
	if err != nil {
		s.writeError(w, divisionID, err)
		return
	}

	status := http.StatusOK
	switch {
	case res.Accepted:
	case res.Reason == pick.ReasonTurnAlreadyTaken:
		status = http.StatusConflict
	default:
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

// HandleLoadDraftData handles GET /api/divisions/{divisionID}/draft
func (s *Service) HandleLoadDraftData(w http.ResponseWriter, r *http.Request) {
	divisionID := r.PathValue("divisionID")
	data, err := s.app.LoadDraftData(r.Context(), divisionID)
	if err != nil {
		s.writeError(w, divisionID, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// HandlePoll handles GET /api/divisions/{divisionID}/poll?since=N
func (s *Service) HandlePoll(w http.ResponseWriter, r *http.Request) {
	divisionID := r.PathValue("divisionID")
	since := 0
	if raw := r.URL.Query().Get("since"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "since must be a non-negative integer"})
			return
		}
		since = n
	}

	res, err := s.app.Poll(r.Context(), divisionID, since)
	if err != nil {
		s.writeError(w, divisionID, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Service) writeError(w http.ResponseWriter, divisionID string, err error) {
	if errors.Is(err, ErrDraftNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "draft not found"})
		return
	}
	log.Error().Err(err).Str("division_id", divisionID).Msg("draft request failed")
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: retryableMessage})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
