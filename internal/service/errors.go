package service

import (
	"fmt"
	"net/http"
)

// Kind classifies query failures.
type Kind string

const (
	KindBadRequest       Kind = "bad_request"
	KindUnauthenticated  Kind = "unauthenticated"
	KindForbidden        Kind = "forbidden"
	KindFormNotFound     Kind = "form_not_found"
	KindFieldNotFound    Kind = "field_not_found"
	KindNoMatch          Kind = "no_match"
	KindStoreUnavailable Kind = "store_unavailable"
)

// Stage names the step of a query that failed.
type Stage string

const (
	StageValidate     Stage = "validate"
	StageAuthenticate Stage = "authenticate"
	StageLocateForm   Stage = "locate_form"
	StageOwnership    Stage = "check_ownership"
	StageResolveField Stage = "resolve_field"
	StageScan         Stage = "scan_submissions"
	StageShape        Stage = "shape_result"
)

// Error is the terminal failure of a query. Fields is set for
// KindFieldNotFound and lists the form's field titles.
type Error struct {
	Kind    Kind
	Stage   Stage
	Message string
	Fields  []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Kind, e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Stage, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the error kind to a response status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindBadRequest, KindFieldNotFound:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindFormNotFound, KindNoMatch:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind Kind, stage Stage, msg string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Message: msg, Err: err}
}

func storeError(stage Stage, err error) *Error {
	return newError(KindStoreUnavailable, stage, "store unavailable", err)
}
