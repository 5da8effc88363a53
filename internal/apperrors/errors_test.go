package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{KindUnauthorized, http.StatusUnauthorized},
		{KindNotLoggedIn, http.StatusUnauthorized},
		{KindInvalidLogin, http.StatusUnauthorized},
		{KindInvalidCsrfToken, http.StatusBadRequest},
		{KindInvalidSession, http.StatusBadRequest},
		{KindBadRequest, http.StatusBadRequest},
		{KindForbidden, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindTooManyRequests, http.StatusTooManyRequests},
		{KindEncoding, http.StatusInternalServerError},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.kind.Status(), func(t *testing.T) {
			if got := tc.kind.HTTPStatus(); got != tc.want {
				t.Fatalf("HTTPStatus()=%d want %d", got, tc.want)
			}
		})
	}
}

func TestFromPassesTaxonomyErrorsThrough(t *testing.T) {
	orig := NotLoggedIn()
	got := From(fmt.Errorf("wrapped: %w", orig))
	if got.Kind != KindNotLoggedIn {
		t.Fatalf("expected NotLoggedIn kind, got %v", got.Kind)
	}
}

func TestFromWrapsUnknownErrorsAsInternal(t *testing.T) {
	cause := errors.New("db connection refused")
	got := From(cause)
	if got.Kind != KindInternal {
		t.Fatalf("expected internal kind, got %v", got.Kind)
	}
	if !errors.Is(got, cause) {
		t.Fatal("wrapped error must unwrap to its cause")
	}
}

func TestErrorStringIncludesCause(t *testing.T) {
	e := Encoding(errors.New("no claims"))
	if e.Error() != "could not encode token claims: no claims" {
		t.Fatalf("unexpected error string: %q", e.Error())
	}
	plain := InvalidCsrfToken()
	if plain.Error() != "invalid csrf token" {
		t.Fatalf("unexpected error string: %q", plain.Error())
	}
}
