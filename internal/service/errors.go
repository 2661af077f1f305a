package service

import "errors"

var (
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidAPIKey      = errors.New("invalid api key")
	ErrClientSuspended    = errors.New("client suspended")
	ErrInvalidToken       = errors.New("invalid token")
	ErrJobNotFound        = errors.New("job not found")
	ErrInvalidWebhookURL  = errors.New("invalid webhook url")
)
