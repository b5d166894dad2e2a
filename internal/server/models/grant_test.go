package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVerificationGrant_ValidAt(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	g := VerificationGrant{ClaimedAt: now, ExpiresAt: now.Add(24 * time.Hour)}

	assert.True(t, g.ValidAt(now))
	assert.True(t, g.ValidAt(now.Add(24*time.Hour-time.Second)))
	assert.False(t, g.ValidAt(now.Add(24*time.Hour)))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "verify", KindVerify.String())
	assert.Equal(t, "get", KindGet.String())
	assert.Equal(t, "ownerget", KindOwnerGet.String())
	assert.Equal(t, "kind(0)", KindUnknown.String())
}
