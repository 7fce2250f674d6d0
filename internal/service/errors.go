package service

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/model"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/pkg/serr"
)

var (
	ErrNoSession         = errors.New("no active session")
	ErrInFlight          = errors.New("operation already in progress")
	ErrRemoteUnavailable = errors.New("remote store not configured")
	ErrFeatureDisabled   = errors.New("feature not configured")
	ErrNotLoaded         = errors.New("workspace not loaded")
)

// PersistError reports a write that reached memory but not the store. The in-memory state keeps the
// attempted change.
type PersistError struct {
	Op     string
	Remote bool
	Err    error
}

func (e *PersistError) Error() string {
	where := "local"
	if e.Remote {
		where = "remote"
	}
	return fmt.Sprintf("persist %s (%s): %v", e.Op, where, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// AnalysisError reports a failed AI call. DraftAvailable tells the caller the submitted text can
// still be saved as a draft; Draft is set when it already was.
type AnalysisError struct {
	Err            error
	DraftAvailable bool
	Draft          *model.DiaryEntry
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis failed: %v", e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

func noSessionError() *serr.ServiceError {
	return serr.NewServiceError(ErrNoSession, http.StatusUnauthorized, "no active session")
}

func notLoadedError() *serr.ServiceError {
	return unavailable(ErrNotLoaded, "your data could not be loaded yet, try again")
}

func inFlightError(op, target string) *serr.ServiceError {
	se := serr.Conflict(ErrInFlight, "%s is already in progress", op)
	se.Env["op"] = op
	se.Env["target"] = target
	return se
}

func entryNotFound(id string) *serr.ServiceError {
	se := serr.NotFound(nil, "entry not found")
	se.Env["entry_id"] = id
	return se
}

func gemNotFound(id string) *serr.ServiceError {
	se := serr.NotFound(nil, "gem not found")
	se.Env["gem_id"] = id
	return se
}

func unavailable(err error, msg string) *serr.ServiceError {
	return serr.NewServiceError(err, http.StatusServiceUnavailable, "%s", msg)
}
