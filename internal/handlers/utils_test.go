package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/counseldesk/apiserver/internal/services"
	"github.com/counseldesk/apiserver/internal/store"
)

func TestWriteServiceError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"forbidden", services.ErrNotAuthorized, http.StatusForbidden},
		{"bad input", fmt.Errorf("%w: content is required", services.ErrInvalidInput), http.StatusBadRequest},
		{"not found", store.ErrNotFound, http.StatusNotFound},
		{"conflict", fmt.Errorf("%w: already approved", store.ErrConflict), http.StatusConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeServiceError(rec, tc.err, "fallback")
		if rec.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.status, rec.Code)
		}

		var body ErrorResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("%s: decode body: %v", tc.name, err)
		}
		if body.Error == "" {
			t.Fatalf("%s: expected an error message", tc.name)
		}
	}
}

func TestUserIDFromContext(t *testing.T) {
	base := context.Background()

	if id, err := userIDFromContext(context.WithValue(base, contextSubjectKey, "15")); err != nil || id != 15 {
		t.Fatalf("string subject: got %d, %v", id, err)
	}
	if id, err := userIDFromContext(context.WithValue(base, contextSubjectKey, 8)); err != nil || id != 8 {
		t.Fatalf("int subject: got %d, %v", id, err)
	}
	if _, err := userIDFromContext(base); err == nil {
		t.Fatalf("expected error for missing subject")
	}
	if _, err := userIDFromContext(context.WithValue(base, contextSubjectKey, "zero")); err == nil {
		t.Fatalf("expected error for non-numeric subject")
	}
	if _, err := userIDFromContext(context.WithValue(base, contextSubjectKey, -3)); err == nil {
		t.Fatalf("expected error for negative subject")
	}
}
