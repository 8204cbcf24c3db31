package nativeapi

import (
	"errors"
	"fmt"

	"torrentstream/internal/apperr"
	"torrentstream/internal/domain"
	"torrentstream/internal/orchestrator"
)

// recoveredError turns a recover() value into an error the problem+json
// writer can render, without ever echoing the panic value to the client.
func recoveredError(v interface{}) error {
	return apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("panic: %v", v))
}

// mapMutationError classifies an error returned by the workflow's
// established-torrent mutations (pause/resume/trackers/options/...): a
// validation error is a client mistake (422), an engine failure on an
// already-admitted torrent is a server-side fault (500).
func mapMutationError(err error) error {
	return classify(err, apperr.KindInternal)
}

// mapAdmissionError is mapMutationError's counterpart for AddTorrent: an
// engine error here means the engine could not be reached at all, which is
// unavailability (503) rather than an internal fault.
func mapAdmissionError(err error) error {
	return classify(err, apperr.KindServiceUnavailable)
}

func classify(err error, engineKind apperr.Kind) error {
	if err == nil {
		return nil
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr
	}

	// Request-payload validation failures (AddTorrent.Validate, the
	// ExecuteAction empty-field checks) are the client sending a bad
	// request, not a config-changeset field violation — those go through
	// apperr.InvalidField separately in the config package and keep 422.
	var invalidOpt *domain.InvalidOptionError
	if errors.As(err, &invalidOpt) {
		return apperr.New(apperr.KindBadRequest, invalidOpt.Error())
	}
	if errors.Is(err, domain.ErrInvalidSource) || errors.Is(err, domain.ErrMetainfoTooLarge) {
		return apperr.New(apperr.KindBadRequest, err.Error())
	}
	if errors.Is(err, orchestrator.ErrEngine) {
		return apperr.Wrap(engineKind, "engine operation failed", err)
	}
	if errors.Is(err, domain.ErrNotFound) {
		return apperr.New(apperr.KindNotFound, "torrent not found")
	}
	return apperr.Wrap(apperr.KindInternal, "internal error", err)
}
