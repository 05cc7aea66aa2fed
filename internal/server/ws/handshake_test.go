package ws

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoron/tinychat/internal/common"
)

func TestParseHandshake(t *testing.T) {
	h, err := parseHandshake("tok-abc alice 17123456789012")
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", h.Capability)
	assert.Equal(t, "alice", h.Username)
	assert.Equal(t, "17123456789012", h.ChannelID)
}

func TestParseHandshakeErrors(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{"too few fields", "tok alice"},
		{"too many fields", "tok alice 123 extra"},
		{"empty frame", ""},
		{"short username", "tok ab 123"},
		{"long username", "tok abcdefghijklmnopqrstuvwxyzabc 123"},
		{"non-numeric channel", "tok alice general"},
		{"empty token", " alice 123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseHandshake(tt.frame)
			assert.Error(t, err)
		})
	}
}

func TestHandshakeErrorMessage(t *testing.T) {
	assert.Equal(t, "no user belongs to that username", handshakeErrorMessage(common.ErrorNotFound))
	assert.Equal(t, "invalid token", handshakeErrorMessage(common.ErrorUnauthorized))
	assert.Equal(t, "internal server error", handshakeErrorMessage(errors.New("disk on fire")))
}
