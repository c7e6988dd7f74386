package domain

import "errors"

var (
	// ErrInvalidTimezone rejects a set operation; any prior preference stays.
	ErrInvalidTimezone = errors.New("invalid timezone")

	// ErrNotConfigured means a user has no timezone preference. It is a
	// normal state, not a failure: conversion output just skips the user.
	ErrNotConfigured = errors.New("timezone not configured")

	// ErrUnresolvable means a candidate lacks the fields needed to pin down
	// a concrete instant. The candidate is dropped; others still resolve.
	ErrUnresolvable = errors.New("unresolvable time expression")

	// ErrInvalidFormat rejects a layout string that renders no time fields.
	ErrInvalidFormat = errors.New("invalid time format layout")
)
