package models

import "testing"

func TestCanTransition_ApprovalPath(t *testing.T) {
	steps := []struct{ from, to string }{
		{StatusDraft, StatusPendingApproval},
		{StatusPendingApproval, StatusScheduled},
		{StatusScheduled, StatusApproved},
	}
	for _, s := range steps {
		if !CanTransition(s.from, s.to) {
			t.Errorf("%s -> %s should be allowed", s.from, s.to)
		}
	}
}

func TestCanTransition_RejectedFromPendingOnly(t *testing.T) {
	if !CanTransition(StatusPendingApproval, StatusRejected) {
		t.Error("Pending Approval -> Rejected should be allowed")
	}
	for _, from := range []string{StatusDraft, StatusScheduled, StatusApproved} {
		if CanTransition(from, StatusRejected) {
			t.Errorf("%s -> Rejected should not be allowed", from)
		}
	}
}

func TestCanTransition_TerminalStates(t *testing.T) {
	for _, from := range []string{StatusApproved, StatusRejected} {
		for _, to := range []string{StatusDraft, StatusPendingApproval, StatusScheduled, StatusApproved, StatusRejected} {
			if CanTransition(from, to) {
				t.Errorf("%s -> %s should not be allowed", from, to)
			}
		}
	}
}

func TestCanTransition_NoSkipping(t *testing.T) {
	if CanTransition(StatusDraft, StatusScheduled) {
		t.Error("Draft -> Scheduled skips approval and should not be allowed")
	}
	if CanTransition(StatusDraft, StatusApproved) {
		t.Error("Draft -> Approved skips the whole path")
	}
}

func TestValidStatusAndPlatform(t *testing.T) {
	if !ValidStatus(StatusPendingApproval) {
		t.Error("Pending Approval should be a valid status")
	}
	if ValidStatus("Published") {
		t.Error("Published is not a defined status")
	}
	if !ValidPlatform(PlatformTikTok) {
		t.Error("TikTok should be a valid platform")
	}
	if ValidPlatform("Twitter") {
		t.Error("Twitter is not a supported platform")
	}
}

func TestDecodeFields(t *testing.T) {
	fields := map[string]any{
		"client":   "Lumina Tech",
		"platform": "Instagram",
		"preview":  "AI is changing the game...",
		"status":   "Scheduled",
	}
	var p Post
	if err := DecodeFields(fields, &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Client != "Lumina Tech" || p.Platform != "Instagram" || p.Status != "Scheduled" {
		t.Errorf("unexpected decode result: %+v", p)
	}
}

func TestEncodeFields_DropsID(t *testing.T) {
	p := Post{ID: "abc", Client: "Vibe Wear", Platform: PlatformTikTok, Status: StatusDraft}
	fields, err := EncodeFields(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, ok := fields["id"]; ok {
		t.Error("id must not be stored in fields")
	}
	if fields["client"] != "Vibe Wear" {
		t.Errorf("client = %v", fields["client"])
	}
}
