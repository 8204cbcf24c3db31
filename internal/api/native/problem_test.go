package nativeapi

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"torrentstream/internal/apperr"
)

func TestWriteProblemClassifiedError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeProblem(rec, apperr.New(apperr.KindNotFound, "torrent not found"))

	if rec.Code != 404 {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("content-type = %q", ct)
	}
	var body Problem
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != 404 || body.Type != "urn:revaer:error:not_found" {
		t.Errorf("body = %+v", body)
	}
}

func TestWriteProblemFallsBackToInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	writeProblem(rec, errors.New("boom"))

	if rec.Code != 500 {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}
