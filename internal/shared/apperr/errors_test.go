package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfWrapped(t *testing.T) {
	base := errors.New("dial tcp: timeout")
	err := fmt.Errorf("store document: %w", Upstream("drive.create", base))

	if got := KindOf(err); got != KindUpstream {
		t.Fatalf("expected %s, got %s", KindUpstream, got)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected cause to be reachable via errors.Is")
	}
	if IsValidation(err) {
		t.Fatalf("upstream error must not be reported as validation")
	}
}

func TestKindOfPlainError(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != "" {
		t.Fatalf("expected empty kind, got %q", got)
	}
}

func TestPartialFailureCarriesFileID(t *testing.T) {
	err := PartialFailure("documents.store", "file-123", errors.New("quota"))
	fields := err.ToMap()
	if fields["file_id"] != "file-123" {
		t.Fatalf("expected file_id in fields, got %v", fields)
	}
	if fields["cause"] != "quota" {
		t.Fatalf("expected cause in fields, got %v", fields)
	}
}
