// Package common defines shared constants and sentinel errors used across
// the bot. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// A required piece of bot-wide configuration (app URL, storage channel)
	// is missing.
	ErrorNotConfigured = errors.New("not configured")

	// A settings field outside the updatable whitelist was requested.
	ErrorUnknownSetting = errors.New("unknown setting")
)
