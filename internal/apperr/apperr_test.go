package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusOf(t *testing.T) {
	cases := map[error]int{
		Validation("title is required"):       http.StatusBadRequest,
		Unauthenticated("not authenticated"):  http.StatusUnauthorized,
		NotFound("task not found"):            http.StatusNotFound,
		Configuration("model not configured"): http.StatusInternalServerError,
		EmptyResponse("empty AI response"):    http.StatusInternalServerError,
		Upstream("webhook failed", 502, nil):  http.StatusBadGateway,
		Upstream("model failed", 0, nil):      http.StatusInternalServerError,
		errors.New("boom"):                    http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := StatusOf(err); got != want {
			t.Errorf("StatusOf(%v) = %d, want %d", err, got, want)
		}
	}
}

func TestWrappedKind(t *testing.T) {
	err := fmt.Errorf("update task: %w", NotFound("task not found"))

	if KindOf(err) != KindNotFound {
		t.Errorf("KindOf = %s", KindOf(err))
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("expected errors.Is(err, ErrNotFound)")
	}
	if errors.Is(err, ErrValidation) {
		t.Error("did not expect validation match")
	}
	if MessageOf(err) != "task not found" {
		t.Errorf("MessageOf = %q", MessageOf(err))
	}
}

func TestStoreHidesCause(t *testing.T) {
	cause := errors.New("database is locked")
	err := Store(cause)

	if MessageOf(err) != "store error" {
		t.Errorf("MessageOf = %q", MessageOf(err))
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause in chain")
	}
	if MessageOf(errors.New("secret detail")) != "internal server error" {
		t.Error("unclassified error message must be opaque")
	}
}
