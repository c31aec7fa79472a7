package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pulsehq/socialpulse/internal/apperr"
	"github.com/pulsehq/socialpulse/internal/auth"
	"github.com/pulsehq/socialpulse/internal/dashboard"
	"github.com/pulsehq/socialpulse/internal/store"
	"github.com/pulsehq/socialpulse/internal/workflow"
)

// Handler holds API route handlers.
type Handler struct {
	ctrl *dashboard.Controller
}

// NewHandler creates a new Handler.
func NewHandler(ctrl *dashboard.Controller) *Handler {
	return &Handler{ctrl: ctrl}
}

// serveProjection writes a projection body with the snapshot revision as a
// strong ETag; a matching If-None-Match short-circuits to 304.
func (h *Handler) serveProjection(w http.ResponseWriter, r *http.Request, collection string, body func() any) {
	if rev := h.ctrl.Revision(collection); rev != "" {
		etag := `"` + rev + `"`
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}
	writeJSON(w, http.StatusOK, body())
}

// Session handles GET /api/session.
//
//	@Summary		Get the current auth session state
//	@Tags			auth
//	@Produce		json
//	@Success		200	{object}	SessionResponse
//	@Security		BearerAuth
//	@Router			/session [get]
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	resp := SessionResponse{
		LoggedIn: h.ctrl.LoggedIn(),
		Syncing:  h.ctrl.Syncing(),
	}
	if id, ok := h.ctrl.Identity(); ok {
		resp.UID = id.UID
		resp.Anonymous = id.Anonymous
	}
	resp.Name, resp.Agency = h.ctrl.Profile()
	writeJSON(w, http.StatusOK, resp)
}

// Login handles POST /api/login.
//
//	@Summary		Submit dashboard credentials
//	@Tags			auth
//	@Accept			json
//	@Param			body	body	LoginRequest	true	"Credentials"
//	@Success		204		"Logged in"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.ctrl.Login(req.Email, req.Password); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("email and password are required"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Logout handles POST /api/logout.
//
//	@Summary		Log out and tear down synchronization
//	@Tags			auth
//	@Success		204	"Logged out"
//	@Security		BearerAuth
//	@Router			/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, _ *http.Request) {
	h.ctrl.Logout()
	w.WriteHeader(http.StatusNoContent)
}

// SetProfile handles PUT /api/profile.
//
//	@Summary		Store the sign-up profile fields
//	@Tags			auth
//	@Accept			json
//	@Param			body	body	ProfileRequest	true	"Profile fields"
//	@Success		204		"Stored"
//	@Security		BearerAuth
//	@Router			/profile [put]
func (h *Handler) SetProfile(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	h.ctrl.SetProfile(req.Name, req.Agency)
	w.WriteHeader(http.StatusNoContent)
}

// RequestScan handles POST /api/scan.
//
//	@Summary		Start a biometric scan
//	@Tags			auth
//	@Accept			json
//	@Param			body	body	ScanRequest	true	"Modality"
//	@Success		202		"Scan started"
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/scan [post]
func (h *Handler) RequestScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.ctrl.RequestScan(auth.Modality(req.Modality)); err != nil {
		switch {
		case errors.Is(err, apperr.ErrModalityDisabled):
			writeJSON(w, http.StatusConflict, errorBody("modality disabled in settings"))
		case apperr.IsValidation(err):
			writeJSON(w, http.StatusBadRequest, errorBody("unknown modality"))
		default:
			slog.Error("scan request failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// CancelScan handles DELETE /api/scan.
//
//	@Summary		Cancel an in-flight biometric scan
//	@Tags			auth
//	@Success		204	"Cancelled (no-op outside the scanning phase)"
//	@Security		BearerAuth
//	@Router			/scan [delete]
func (h *Handler) CancelScan(w http.ResponseWriter, _ *http.Request) {
	h.ctrl.CancelScan()
	w.WriteHeader(http.StatusNoContent)
}

// ScanState handles GET /api/scan.
//
//	@Summary		Get the biometric scan state
//	@Tags			auth
//	@Produce		json
//	@Success		200	{object}	ScanStateResponse
//	@Security		BearerAuth
//	@Router			/scan [get]
func (h *Handler) ScanState(w http.ResponseWriter, _ *http.Request) {
	st := h.ctrl.ScanState()
	writeJSON(w, http.StatusOK, ScanStateResponse{
		Modality: string(st.Modality),
		Phase:    string(st.Phase),
	})
}

// SetBiometric handles PUT /api/settings/biometric.
//
//	@Summary		Toggle a biometric modality
//	@Tags			auth
//	@Accept			json
//	@Param			body	body	BiometricToggleRequest	true	"Toggle"
//	@Success		204		"Updated"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings/biometric [put]
func (h *Handler) SetBiometric(w http.ResponseWriter, r *http.Request) {
	var req BiometricToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.ctrl.SetBiometric(auth.Modality(req.Modality), req.Enabled); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown modality"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListClients handles GET /api/clients.
//
//	@Summary		List mirrored clients
//	@Tags			projections
//	@Produce		json
//	@Success		200	{object}	ClientListResponse
//	@Success		304	"Snapshot unchanged"
//	@Security		BearerAuth
//	@Router			/clients [get]
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	h.serveProjection(w, r, store.CollectionClients, func() any {
		return ClientListResponse{Clients: h.ctrl.Clients()}
	})
}

// ListPosts handles GET /api/posts.
//
//	@Summary		List mirrored campaign posts
//	@Tags			projections
//	@Produce		json
//	@Success		200	{object}	PostListResponse
//	@Success		304	"Snapshot unchanged"
//	@Security		BearerAuth
//	@Router			/posts [get]
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	h.serveProjection(w, r, store.CollectionPosts, func() any {
		return PostListResponse{Posts: h.ctrl.Posts()}
	})
}

// ListMessages handles GET /api/messages.
//
//	@Summary		List mirrored inbox messages
//	@Tags			projections
//	@Produce		json
//	@Success		200	{object}	MessageListResponse
//	@Success		304	"Snapshot unchanged"
//	@Security		BearerAuth
//	@Router			/messages [get]
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	h.serveProjection(w, r, store.CollectionMessages, func() any {
		return MessageListResponse{Messages: h.ctrl.Messages()}
	})
}

// ListCompetitors handles GET /api/competitors.
//
//	@Summary		List mirrored competitors
//	@Tags			projections
//	@Produce		json
//	@Success		200	{object}	CompetitorListResponse
//	@Success		304	"Snapshot unchanged"
//	@Security		BearerAuth
//	@Router			/competitors [get]
func (h *Handler) ListCompetitors(w http.ResponseWriter, r *http.Request) {
	h.serveProjection(w, r, store.CollectionCompetitors, func() any {
		return CompetitorListResponse{Competitors: h.ctrl.Competitors()}
	})
}

// Badges handles GET /api/badges.
//
//	@Summary		Get sidebar badge counts
//	@Tags			projections
//	@Produce		json
//	@Success		200	{object}	BadgeResponse
//	@Security		BearerAuth
//	@Router			/badges [get]
func (h *Handler) Badges(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Badges())
}

// CreatePost handles POST /api/posts.
//
//	@Summary		Draft a campaign post
//	@Tags			workflow
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreatePostRequest	true	"Draft"
//	@Success		201		{object}	CreatePostResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/posts [post]
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	id, err := h.ctrl.CreatePost(r.Context(), workflow.Draft{
		Client:   req.Client,
		Platform: req.Platform,
		Preview:  req.Preview,
		Image:    req.Image,
		Date:     req.Date,
		Status:   req.Status,
	})
	if err != nil {
		if apperr.IsValidation(err) {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		slog.Error("create post failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusCreated, CreatePostResponse{ID: id})
}

// SetPostStatus handles PATCH /api/posts/{id}/status.
//
//	@Summary		Move a post through the approval workflow
//	@Tags			workflow
//	@Accept			json
//	@Param			id		path	string				true	"Post id"
//	@Param			body	body	SetStatusRequest	true	"Target status"
//	@Success		204		"Updated"
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/posts/{id}/status [patch]
func (h *Handler) SetPostStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("post id is required"))
		return
	}
	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.ctrl.SetPostStatus(r.Context(), id, req.Status); err != nil {
		switch {
		case apperr.IsValidation(err):
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		case errors.Is(err, apperr.ErrInvalidTransition):
			writeJSON(w, http.StatusConflict, errorBody(err.Error()))
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("post not found"))
		default:
			slog.Error("set post status failed",
				slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
