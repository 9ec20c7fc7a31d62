package models

import "errors"

var (
	// ErrInsufficientData means there is too little data to train or analyze.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrUntrainedModel means inference was attempted before training or loading.
	ErrUntrainedModel = errors.New("untrained model")
	// ErrNotFound is a lookup miss for a user, account, action or model.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized means the resource belongs to a different user.
	ErrUnauthorized = errors.New("not authorized")
	// ErrUpstreamProvider wraps any failure of the account-aggregation provider.
	ErrUpstreamProvider = errors.New("upstream provider error")
	// ErrCorruptModel means a persisted model record is incomplete or inconsistent.
	ErrCorruptModel = errors.New("corrupt model record")
)
