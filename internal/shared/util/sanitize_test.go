package util

import (
	"strings"
	"testing"
)

func TestSanitizeFileNameRejectsTraversal(t *testing.T) {
	if _, err := SanitizeFileName("../../etc/passwd"); err == nil {
		t.Fatal("expected traversal name rejected")
	}
}

func TestSanitizeFileNameReplacesSeparators(t *testing.T) {
	got, err := SanitizeFileName(`dir/sub\name.txt`)
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if got != "dir_sub_name.txt" {
		t.Fatalf("expected separators replaced, got %q", got)
	}
}

func TestSanitizeFileNameReplacesControlCharacters(t *testing.T) {
	got, err := SanitizeFileName("re\x00port\n.txt")
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if got != "re_port_.txt" {
		t.Fatalf("expected control characters replaced, got %q", got)
	}
}

func TestSanitizeFileNameCapsLength(t *testing.T) {
	got, err := SanitizeFileName(strings.Repeat("a", 300))
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if len(got) != 255 {
		t.Fatalf("expected 255-rune cap, got %d", len(got))
	}
}

func TestSanitizeFileNameRejectsEmpty(t *testing.T) {
	if _, err := SanitizeFileName("   "); err == nil {
		t.Fatal("expected blank name rejected")
	}
}
