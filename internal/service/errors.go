package service

import (
	"errors"
	"fmt"
)

// Reason is the machine-readable code attached to every rejected operation.
type Reason string

const (
	ReasonNotFound          Reason = "NotFound"
	ReasonUnauthorized      Reason = "Unauthorized"
	ReasonValidation        Reason = "ValidationError"
	ReasonConflict          Reason = "Conflict"
	ReasonPostExpired       Reason = "PostExpired"
	ReasonSelfReaction      Reason = "SelfReaction"
	ReasonDuplicateReaction Reason = "DuplicateReaction"
	ReasonStore             Reason = "StoreError"
)

// Rejection is returned for every failed operation. Message is safe to show
// to clients; Err, when set, is the underlying cause and is only logged.
type Rejection struct {
	Reason  Reason
	Message string
	Err     error
}

func (r *Rejection) Error() string {
	if r.Err != nil {
		return r.Message + ": " + r.Err.Error()
	}
	return r.Message
}

func (r *Rejection) Unwrap() error { return r.Err }

// Is matches on Reason, so errors.Is(err, ErrSelfReaction) holds for both
// the like and the dislike variant.
func (r *Rejection) Is(target error) bool {
	t, ok := target.(*Rejection)
	return ok && t.Reason == r.Reason
}

var (
	ErrNotFound          = &Rejection{Reason: ReasonNotFound, Message: "post not found"}
	ErrUnauthorized      = &Rejection{Reason: ReasonUnauthorized, Message: "invalid credentials"}
	ErrValidation        = &Rejection{Reason: ReasonValidation, Message: "invalid input"}
	ErrConflict          = &Rejection{Reason: ReasonConflict, Message: "conflict"}
	ErrPostExpired       = &Rejection{Reason: ReasonPostExpired, Message: "This post has expired."}
	ErrSelfReaction      = &Rejection{Reason: ReasonSelfReaction, Message: "You cannot react to your own post"}
	ErrDuplicateReaction = &Rejection{Reason: ReasonDuplicateReaction, Message: "You already reacted to this post"}
	ErrStore             = &Rejection{Reason: ReasonStore, Message: "db error"}
)

func reject(reason Reason, format string, args ...any) error {
	return &Rejection{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func storeError(op string, err error) error {
	return &Rejection{Reason: ReasonStore, Message: "db error", Err: fmt.Errorf("%s: %w", op, err)}
}

// ReasonOf classifies err; anything that is not a Rejection is a store failure.
func ReasonOf(err error) Reason {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Reason
	}
	return ReasonStore
}

// MessageOf returns the client-facing message for err.
func MessageOf(err error) string {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Message
	}
	return ErrStore.Message
}
