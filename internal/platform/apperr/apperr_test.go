package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIsKind(t *testing.T) {
	err := NotFound("patients", 42)
	if !IsKind(err, KindNotFound) {
		t.Error("NotFound not matched")
	}
	if IsKind(err, KindConflict) {
		t.Error("kind confused")
	}

	wrapped := fmt.Errorf("loading: %w", err)
	if !IsKind(wrapped, KindNotFound) {
		t.Error("wrapped error not matched")
	}

	if IsKind(errors.New("plain"), KindNotFound) {
		t.Error("plain error matched")
	}
}

func TestErrorsIsMatchesByKind(t *testing.T) {
	err := InvalidState("beds", "bed %d is occupied", 3)

	if !errors.Is(err, &Error{Kind: KindInvalidState}) {
		t.Error("kind-only target not matched")
	}
	if !errors.Is(err, &Error{Kind: KindInvalidState, Resource: "beds"}) {
		t.Error("kind+resource target not matched")
	}
	if errors.Is(err, &Error{Kind: KindInvalidState, Resource: "rooms"}) {
		t.Error("wrong resource matched")
	}
}

func TestMessageShape(t *testing.T) {
	err := Blocked("wards", "ward has %d rooms", 2)
	want := "referential_integrity wards: ward has 2 rooms"
	if err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}
}

func TestAuthenticationIsUndifferentiated(t *testing.T) {
	// the same value regardless of which check failed
	if Authentication().Error() != Authentication().Error() {
		t.Error("authentication messages differ")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NotFound("patients", 1), http.StatusNotFound},
		{Conflict("users", "duplicate"), http.StatusConflict},
		{Blocked("wards", "has rooms"), http.StatusConflict},
		{InvalidState("beds", "occupied"), http.StatusConflict},
		{Authentication(), http.StatusUnauthorized},
		{Session("expired"), http.StatusUnauthorized},
		{Validation("wards", "code required"), http.StatusBadRequest},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestWrapPreservesKind(t *testing.T) {
	cause := errors.New("io failure")
	err := Wrap(Validation("orders", "bad payload"), cause)

	if !IsKind(err, KindValidation) {
		t.Error("kind lost")
	}
	if !errors.Is(err, cause) {
		t.Error("cause not unwrapped")
	}
}
