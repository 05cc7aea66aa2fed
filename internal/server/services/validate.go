package services

import (
	"fmt"

	"github.com/avoron/tinychat/internal/common"
)

const (
	usernameMinLen = 3
	usernameMaxLen = 28

	displayNameMaxLen = 48
	credentialMaxLen  = 128

	publicKeyMinLen = 32
	publicKeyMaxLen = 1024

	channelNameMaxLen = 128
	messageTextMaxLen = 4096
)

// validUsername reports whether username is 3-28 characters of lowercase
// letters, digits, '-' and '_', with no doubled '-' or '_' runs. Usernames
// double as storage keys, so nothing outside this charset is ever accepted.
func validUsername(username string) bool {
	if len(username) < usernameMinLen || len(username) > usernameMaxLen {
		return false
	}
	var prev rune
	for _, ch := range username {
		switch {
		case ch >= 'a' && ch <= 'z':
		case ch >= '0' && ch <= '9':
		case ch == '-' || ch == '_':
			if prev == ch {
				return false
			}
		default:
			return false
		}
		prev = ch
	}
	return true
}

func checkUsername(username string) error {
	if !validUsername(username) {
		return fmt.Errorf("username should be a 3-28 character string of lowercase letters, digits, '-' and '_': %w", common.ErrorValidation)
	}
	return nil
}

func checkDisplayName(displayName string) error {
	if len(displayName) < 1 || len(displayName) > displayNameMaxLen {
		return fmt.Errorf("display name should have a length between 1 and %d characters: %w", displayNameMaxLen, common.ErrorValidation)
	}
	return nil
}

func checkCredential(credential string) error {
	if len(credential) < 1 || len(credential) > credentialMaxLen {
		return fmt.Errorf("password should have a length between 1 and %d characters: %w", credentialMaxLen, common.ErrorValidation)
	}
	return nil
}

func checkPublicKey(publicKey string) error {
	if len(publicKey) < publicKeyMinLen || len(publicKey) > publicKeyMaxLen {
		return fmt.Errorf("public key should be in base64-encoded raw format: %w", common.ErrorValidation)
	}
	return nil
}

func checkChannelName(name string) error {
	if len(name) < 1 || len(name) > channelNameMaxLen {
		return fmt.Errorf("channel name should have a length between 1 and %d characters: %w", channelNameMaxLen, common.ErrorValidation)
	}
	return nil
}
