package store

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGetMissingKeys(t *testing.T) {
	s := openTestStore(t)

	got, err := s.Get("dailyTokens", "selectedPlan")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Get on empty store returned %v, want empty map", got)
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	s := openTestStore(t)

	err := s.Set(map[string]string{
		"dailyTokens":  "800",
		"selectedPlan": "free",
	})
	if err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := s.Get("dailyTokens", "selectedPlan", "lastUrl")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got["dailyTokens"] != "800" {
		t.Fatalf("dailyTokens = %q, want 800", got["dailyTokens"])
	}
	if got["selectedPlan"] != "free" {
		t.Fatalf("selectedPlan = %q, want free", got["selectedPlan"])
	}
	if _, ok := got["lastUrl"]; ok {
		t.Fatal("lastUrl present but never written")
	}
}

func TestPartialSetLeavesOtherKeys(t *testing.T) {
	s := openTestStore(t)

	if err := s.Set(map[string]string{"dailyTokens": "100", "lastUrl": "/chat/abc"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(map[string]string{"dailyTokens": "200"}); err != nil {
		t.Fatalf("partial Set: %v", err)
	}

	got, err := s.Get("dailyTokens", "lastUrl")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got["dailyTokens"] != "200" {
		t.Fatalf("dailyTokens = %q, want 200", got["dailyTokens"])
	}
	if got["lastUrl"] != "/chat/abc" {
		t.Fatalf("lastUrl = %q, want /chat/abc (untouched by partial write)", got["lastUrl"])
	}
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Set(map[string]string{"currentConversationTokens": "5000"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = s2.Close() }()

	got, err := s2.Get("currentConversationTokens")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got["currentConversationTokens"] != "5000" {
		t.Fatalf("currentConversationTokens = %q after reopen, want 5000", got["currentConversationTokens"])
	}
}
