package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesKindAndMessage(t *testing.T) {
	sentinel := Conflict("Quest is no longer available")
	err := fmt.Errorf("claim: %w", Conflict("Quest is no longer available"))

	if !errors.Is(err, sentinel) {
		t.Error("expected wrapped rejection to match sentinel")
	}
	if errors.Is(err, Conflict("something else")) {
		t.Error("expected different message not to match")
	}
	if errors.Is(err, Invalid("Quest is no longer available")) {
		t.Error("expected different kind not to match")
	}
}

func TestAs(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("outer: %w", Wrap(KindInvalid, "Template seeding failed", cause))

	rej, ok := As(err)
	if !ok {
		t.Fatal("expected rejection")
	}
	if rej.Kind != KindInvalid {
		t.Errorf("kind = %q, want %q", rej.Kind, KindInvalid)
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable")
	}

	if _, ok := As(errors.New("plain")); ok {
		t.Error("plain error should not be a rejection")
	}
}
