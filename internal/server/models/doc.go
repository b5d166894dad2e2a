// Package models defines the bot's data models: records persisted in the
// store and the typed request produced by the deep-link decoder.
package models
