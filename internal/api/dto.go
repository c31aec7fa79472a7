package api

import (
	"github.com/pulsehq/socialpulse/internal/models"
)

// LoginRequest is the request body for credential login.
type LoginRequest struct {
	Email    string `json:"email" example:"alex@agency.com" validate:"required"`
	Password string `json:"password" example:"hunter2" validate:"required"`
}

// ProfileRequest carries the sign-up profile fields.
type ProfileRequest struct {
	Name   string `json:"name" example:"Alex Rivera"`
	Agency string `json:"agency" example:"Pulse Agency"`
}

// ScanRequest starts a biometric scan.
type ScanRequest struct {
	Modality string `json:"modality" example:"face" validate:"required"`
}

// BiometricToggleRequest enables or disables a modality in settings.
type BiometricToggleRequest struct {
	Modality string `json:"modality" example:"fingerprint" validate:"required"`
	Enabled  bool   `json:"enabled" example:"true"`
}

// CreatePostRequest is the request body for drafting a campaign post.
type CreatePostRequest struct {
	Client   string `json:"client" example:"Lumina Tech" validate:"required"`
	Platform string `json:"platform" example:"Instagram" validate:"required"`
	Preview  string `json:"preview" example:"Launch teaser"`
	Image    string `json:"image"`
	Date     string `json:"date" example:"2026-01-15T10:00:00Z"`
	Status   string `json:"status" example:"Draft"`
}

// SetStatusRequest is the request body for a workflow transition.
type SetStatusRequest struct {
	Status string `json:"status" example:"Pending Approval" validate:"required"`
}

// CreatePostResponse returns the adapter-assigned document id.
type CreatePostResponse struct {
	ID string `json:"id" example:"5f1c1a2b" validate:"required"`
}

// SessionResponse describes the auth session state.
type SessionResponse struct {
	UID       string `json:"uid,omitempty" example:"anon-user"`
	Anonymous bool   `json:"anonymous" example:"true"`
	LoggedIn  bool   `json:"logged_in" example:"false"`
	Syncing   bool   `json:"syncing" example:"false"`
	Name      string `json:"name,omitempty"`
	Agency    string `json:"agency,omitempty"`
}

// ScanStateResponse describes the biometric scan state.
type ScanStateResponse struct {
	Modality string `json:"modality,omitempty" example:"face"`
	Phase    string `json:"phase" example:"Scanning" validate:"required"`
}

// ClientListResponse wraps the clients projection.
type ClientListResponse struct {
	Clients []models.Client `json:"clients" validate:"required"`
}

// PostListResponse wraps the posts projection.
type PostListResponse struct {
	Posts []models.Post `json:"posts" validate:"required"`
}

// MessageListResponse wraps the messages projection.
type MessageListResponse struct {
	Messages []models.Message `json:"messages" validate:"required"`
}

// CompetitorListResponse wraps the competitors projection.
type CompetitorListResponse struct {
	Competitors []models.Competitor `json:"competitors" validate:"required"`
}

// BadgeResponse wraps the sidebar badge counts.
type BadgeResponse = models.BadgeCounts
