package moderation

import (
	"path/filepath"
	"testing"
)

func TestLoadBlocklistMissingFileIsEmpty(t *testing.T) {
	list, err := LoadBlocklist(filepath.Join(t.TempDir(), "nope.txt"))
	if err != nil {
		t.Fatalf("LoadBlocklist: %v", err)
	}
	if list.Len() != 0 {
		t.Fatalf("len = %d", list.Len())
	}
	if hits := list.Match("anything at all"); hits != nil {
		t.Fatalf("hits = %v", hits)
	}
}

func TestBlocklistMatchFoldsCaseAndDiacritics(t *testing.T) {
	list := writeBlocklist(t, "scam offer", "crypto")
	hits := list.Match("Amazing SCÁM Offer for crypto fans")
	if len(hits) != 2 {
		t.Fatalf("hits = %v", hits)
	}
}

func TestIsTrivialGreeting(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"hi", true},
		{"Hello, hello!", true},
		{"hey thanks bye", true},
		{"good morning thank you", true},
		{"", false},
		{"hello everyone check out my channel", false},
		// All pleasantries, but too long for the local shortcut.
		{"hi hello hey thanks bye", false},
	}
	for _, tc := range tests {
		if got := IsTrivialGreeting(tc.text); got != tc.want {
			t.Errorf("IsTrivialGreeting(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}
