package services

import "errors"

var (
	ErrUnauthenticated     = errors.New("authentication required")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrAccountNotFound     = errors.New("account not found")
	ErrPostNotFound        = errors.New("post not found")
	ErrCommentNotFound     = errors.New("comment not found")
	ErrStoryNotFound       = errors.New("story not found")
	ErrForbidden           = errors.New("not allowed")
	ErrInvalidInput        = errors.New("invalid input")
	ErrConflict            = errors.New("already exists")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrMediaUnavailable    = errors.New("media storage unavailable")
	ErrIdentityUnavailable = errors.New("identity provider unavailable")
	ErrUpstream            = errors.New("upstream failure")
)
