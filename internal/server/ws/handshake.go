package ws

import (
	"errors"
	"strings"

	"github.com/avoron/tinychat/internal/common"
)

// handshake is a parsed subscription request. Clients send one as a text
// frame after connecting: "<capability> <username> <channelID>". A client
// may send several handshakes on one socket to follow several channels.
type handshake struct {
	Capability string
	Username   string
	ChannelID  string
}

// parseHandshake validates the frame's shape only; credentials are checked
// by the registry. Error messages go back to the client verbatim.
func parseHandshake(frame string) (*handshake, error) {
	parts := strings.Split(frame, " ")
	if len(parts) != 3 {
		return nil, errors.New(`handshake should be formatted as: "{TOKEN} {USERNAME} {CHANNEL_ID}"`)
	}

	h := &handshake{Capability: parts[0], Username: parts[1], ChannelID: parts[2]}

	if h.Capability == "" {
		return nil, errors.New("token should not be empty")
	}
	if len(h.Username) < 3 || len(h.Username) > 28 {
		return nil, errors.New("username should be a 3-28 character string")
	}
	if h.ChannelID == "" {
		return nil, errors.New("channel id should not be empty")
	}
	for _, ch := range h.ChannelID {
		if ch < '0' || ch > '9' {
			return nil, errors.New("channel id should be numeric")
		}
	}
	return h, nil
}

// handshakeErrorMessage maps a subscription error to the frame sent back
// to the client. Internals never leak.
func handshakeErrorMessage(err error) string {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return "no user belongs to that username"
	case errors.Is(err, common.ErrorUnauthorized):
		return "invalid token"
	default:
		return "internal server error"
	}
}
