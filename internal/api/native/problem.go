package nativeapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"torrentstream/internal/apperr"
)

// Problem is an RFC 7807 problem+json body.
type Problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// writeProblem renders err as problem+json, classifying it through
// apperr.Kind when possible and falling back to an opaque internal error
// otherwise — never leaking a raw error string for unclassified causes.
func writeProblem(w http.ResponseWriter, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.Wrap(apperr.KindInternal, "internal error", err)
	}

	status := appErr.Kind.HTTPStatus()
	body := Problem{
		Type:   appErr.Kind.URN(),
		Title:  string(appErr.Kind),
		Status: status,
		Detail: appErr.Message,
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
