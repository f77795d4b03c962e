package oauthmodel

import "errors"

var (
	ErrInvalidClientID     = errors.New("invalid client_id")
	ErrInvalidRedirectUri  = errors.New("invalid or no redirect uri")
	ErrInvalidResponseType = errors.New("unsupported response type")
	ErrMissingCode         = errors.New("code is required")
)
