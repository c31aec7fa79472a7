// Package models defines the domain types for SocialPulse.
package models

import (
	"encoding/json"
	"fmt"
)

// Post statuses. A post moves Draft → Pending Approval → Scheduled → Approved;
// Rejected is terminal and reachable only from Pending Approval.
const (
	StatusDraft           = "Draft"
	StatusPendingApproval = "Pending Approval"
	StatusScheduled       = "Scheduled"
	StatusApproved        = "Approved"
	StatusRejected        = "Rejected"
)

// Supported publishing platforms.
const (
	PlatformInstagram = "Instagram"
	PlatformTikTok    = "TikTok"
	PlatformLinkedIn  = "LinkedIn"
)

// Client health ratings.
const (
	HealthExcellent    = "Excellent"
	HealthGood         = "Good"
	HealthActionNeeded = "Action Needed"
)

// Platforms lists all supported platforms in display order.
func Platforms() []string {
	return []string{PlatformInstagram, PlatformTikTok, PlatformLinkedIn}
}

// ValidStatus reports whether s is one of the defined post statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusPendingApproval, StatusScheduled, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// ValidPlatform reports whether p is a supported platform.
func ValidPlatform(p string) bool {
	switch p {
	case PlatformInstagram, PlatformTikTok, PlatformLinkedIn:
		return true
	}
	return false
}

// transitions is the enforced approval graph. Rejected has no outgoing edges.
var transitions = map[string][]string{
	StatusDraft:           {StatusPendingApproval},
	StatusPendingApproval: {StatusScheduled, StatusRejected},
	StatusScheduled:       {StatusApproved},
	StatusApproved:        {},
	StatusRejected:        {},
}

// CanTransition reports whether a post may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Client is an agency client. Clients are created by seeding or manual entry
// and are never mutated by the sync core.
type Client struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Health   string `json:"health"`
	Posts    int    `json:"posts"`
	Growth   string `json:"growth"`
	Website  string `json:"website"`
	Category string `json:"category"`
}

// Post is a campaign post. Status is mutated only through the workflow service;
// Client holds the client name captured at creation time (no referential
// integrity is enforced afterwards).
type Post struct {
	ID       string `json:"id"`
	Client   string `json:"client"`
	Platform string `json:"platform"`
	Preview  string `json:"preview"`
	Image    string `json:"image"`
	Date     string `json:"date"`
	Status   string `json:"status"`
}

// Competitor is a read-only competitive-intelligence snapshot entry.
type Competitor struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Handle   string `json:"handle"`
	Platform string `json:"platform"`
}

// Message is an inbox item. Unread messages are counted for badge totals.
type Message struct {
	ID       string `json:"id"`
	Sender   string `json:"sender"`
	Text     string `json:"text"`
	Time     string `json:"time"`
	Platform string `json:"platform"`
	Unread   bool   `json:"unread"`
}

// BadgeCounts are the sidebar badge totals derived from snapshots.
type BadgeCounts struct {
	PendingApprovals int `json:"pending_approvals"`
	UnreadMessages   int `json:"unread_messages"`
	Competitors      int `json:"competitors"`
}

// DecodeFields unmarshals a document field payload into a typed struct via a
// JSON round-trip. The caller assigns the document id separately.
func DecodeFields(fields map[string]any, out any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("models: encode fields: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("models: decode fields: %w", err)
	}
	return nil
}

// EncodeFields marshals a typed struct into a document field payload,
// dropping the id field (ids are store-assigned, not stored in fields).
func EncodeFields(in any) (map[string]any, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("models: encode: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("models: decode: %w", err)
	}
	delete(fields, "id")
	return fields, nil
}
