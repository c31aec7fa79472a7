// Package workflow drives the campaign-post approval lifecycle.
package workflow

import (
	"context"
	"fmt"
	"sort"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/pulsehq/socialpulse/internal/apperr"
	"github.com/pulsehq/socialpulse/internal/mirror"
	"github.com/pulsehq/socialpulse/internal/models"
	"github.com/pulsehq/socialpulse/internal/store"
)

// StatusFunc looks up a post's current status in the local snapshot. ok is
// false when the post is not (yet) visible — writes are acknowledged before
// snapshots catch up, so a freshly created post may be unknown for a moment.
type StatusFunc func(postID string) (status string, ok bool)

// Service validates and executes post operations against the adapter.
// Successful writes become visible to snapshot subscribers on their next
// notification; there is no synchronous read-your-write guarantee.
type Service struct {
	provider store.Provider
	current  StatusFunc
}

// NewService builds a workflow service. current may be nil, in which case
// status transitions are not checked against the snapshot.
func NewService(provider store.Provider, current StatusFunc) *Service {
	return &Service{provider: provider, current: current}
}

// Draft is the caller-supplied input for a new campaign post.
type Draft struct {
	Client   string `json:"client"`
	Platform string `json:"platform"`
	Preview  string `json:"preview"`
	Image    string `json:"image"`
	Date     string `json:"date"`
	Status   string `json:"status"`
}

// Validate enforces the creation rules: a client must be named and the
// platform must be supported. Status, when set, must be a defined value.
func (d Draft) Validate() error {
	err := validation.ValidateStruct(&d,
		validation.Field(&d.Client, validation.Required),
		validation.Field(&d.Platform, validation.Required,
			validation.In(models.PlatformInstagram, models.PlatformTikTok, models.PlatformLinkedIn)),
		validation.Field(&d.Status,
			validation.In(models.StatusDraft, models.StatusPendingApproval, models.StatusScheduled,
				models.StatusApproved, models.StatusRejected)),
	)
	if err == nil {
		return nil
	}
	if verrs, ok := err.(validation.Errors); ok {
		fields := make([]string, 0, len(verrs))
		for f := range verrs {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		f := fields[0]
		return apperr.NewValidationError(f, verrs[f].Error())
	}
	return err
}

// CreatePost validates the draft, fills defaults (status Draft, stock image,
// today's date), writes the post, and returns its assigned id. Validation
// failures are rejected before any write reaches the adapter.
func (s *Service) CreatePost(ctx context.Context, d Draft) (string, error) {
	if err := d.Validate(); err != nil {
		return "", err
	}
	if d.Status == "" {
		d.Status = models.StatusDraft
	}
	if d.Image == "" {
		d.Image = mirror.DefaultImage
	}
	if d.Date == "" {
		d.Date = time.Now().UTC().Format(time.RFC3339)
	}

	fields, err := models.EncodeFields(models.Post{
		Client:   d.Client,
		Platform: d.Platform,
		Preview:  d.Preview,
		Image:    d.Image,
		Date:     d.Date,
		Status:   d.Status,
	})
	if err != nil {
		return "", err
	}
	return s.provider.Create(ctx, store.CollectionPosts, fields)
}

// SetStatus overwrites a post's status. The move must follow the approval
// graph (Draft → Pending Approval → Scheduled → Approved, with Rejected
// reachable from Pending Approval) whenever the current status is visible in
// the snapshot; a post not yet visible is written unchecked, since snapshot
// delivery may lag the acknowledged write that created it.
func (s *Service) SetStatus(ctx context.Context, postID, status string) error {
	if !models.ValidStatus(status) {
		return apperr.NewValidationError("status", fmt.Sprintf("unknown status %q", status))
	}
	if s.current != nil {
		if cur, ok := s.current(postID); ok && !models.CanTransition(cur, status) {
			return fmt.Errorf("%w: %s → %s", apperr.ErrInvalidTransition, cur, status)
		}
	}
	return s.provider.Update(ctx, store.CollectionPosts, postID, map[string]any{"status": status})
}
