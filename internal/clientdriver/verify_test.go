package clientdriver

import (
	"strings"
	"testing"
)

func TestVerifyMatchIdentical(t *testing.T) {
	ok, want, got, err := VerifyMatch(strings.NewReader("hello world"), strings.NewReader("hello world"))
	if err != nil {
		t.Fatalf("VerifyMatch returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected match, got mismatch (%s vs %s)", want, got)
	}
	if want != got {
		t.Fatalf("checksums differ despite ok=true: %s vs %s", want, got)
	}
}

func TestVerifyMatchDiffers(t *testing.T) {
	ok, want, got, err := VerifyMatch(strings.NewReader("hello world"), strings.NewReader("goodbye world"))
	if err != nil {
		t.Fatalf("VerifyMatch returned error: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatch, got match")
	}
	if want == got {
		t.Fatalf("checksums equal despite different input")
	}
}

func TestChecksumKnownVector(t *testing.T) {
	sum, err := Checksum(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Checksum returned error: %v", err)
	}
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if sum != want {
		t.Fatalf("Checksum of empty input = %s, want %s", sum, want)
	}
}
