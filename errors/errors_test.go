package errors

import (
	"fmt"
	"testing"
)

func TestDeckError(t *testing.T) {
	// Test basic error creation
	err := New(ErrCodeUnresolvedPath, "path not resolved")
	if err.Code != ErrCodeUnresolvedPath {
		t.Errorf("expected code %s, got %s", ErrCodeUnresolvedPath, err.Code)
	}

	// Test error wrapping
	cause := fmt.Errorf("underlying error")
	wrapped := Wrap(cause, ErrCodeIo, "read failed")

	if wrapped.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}

	// Test Is function
	if !Is(wrapped, ErrCodeIo) {
		t.Error("Is should return true for matching code")
	}

	if Is(wrapped, ErrCodeParse) {
		t.Error("Is should return false for non-matching code")
	}

	// Test WithDetail
	detailed := err.WithDetail("flattenedDir", "-home-user-proj").WithDetail("attempts", 3)
	if detailed.Details["flattenedDir"] != "-home-user-proj" {
		t.Error("WithDetail should add details")
	}
}

func TestErrorConstructors(t *testing.T) {
	// Test UnresolvedPath
	err := UnresolvedPath("C--Users-jdoe-proj", "no strategy matched")
	if err.Code != ErrCodeUnresolvedPath {
		t.Errorf("expected code %s, got %s", ErrCodeUnresolvedPath, err.Code)
	}
	if err.Details["flattenedDir"] != "C--Users-jdoe-proj" {
		t.Error("UnresolvedPath should include flattenedDir detail")
	}

	// Test AllProvidersFailed keeps the first error as cause
	first := fmt.Errorf("claude scan failed")
	err = AllProvidersFailed(first, 2)
	if err.Code != ErrCodeAllProvidersFailed {
		t.Errorf("expected code %s, got %s", ErrCodeAllProvidersFailed, err.Code)
	}
	if err.Unwrap() != first {
		t.Error("AllProvidersFailed should keep the first error as cause")
	}
	if err.Details["providers"] != 2 {
		t.Error("AllProvidersFailed should include provider count")
	}

	// Test ParseFailed
	err = ParseFailed("/tmp/x.jsonl", fmt.Errorf("bad json"))
	if err.Details["path"] != "/tmp/x.jsonl" {
		t.Error("ParseFailed should include path detail")
	}
	if GetCode(err) != ErrCodeParse {
		t.Errorf("GetCode should return %s", ErrCodeParse)
	}
}
