// Package services contains the server-side business logic. This file
// implements AccountService: registration, login, capability validation,
// session revocation, and account purge.
package services

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/avoron/tinychat/internal/common"
	"github.com/avoron/tinychat/internal/lockx"
	"github.com/avoron/tinychat/internal/server/config"
	"github.com/avoron/tinychat/internal/server/models"
	"github.com/avoron/tinychat/internal/server/repositories/repomanager"
)

// capabilityTokenBytes is the entropy of issued capability tokens.
const capabilityTokenBytes = 48

// AccountService provides identity operations. Capability tokens are
// returned to the caller once and persisted only as one-way digests.
type AccountService struct {
	m         repomanager.Manager
	secret    []byte
	acctLocks *lockx.KeyedMutex
	chanLocks *lockx.KeyedMutex
}

// NewAccountService constructs an AccountService. The keyed mutexes are
// shared with the other services so per-entity critical sections compose.
func NewAccountService(m repomanager.Manager, cfg *config.Config, acctLocks, chanLocks *lockx.KeyedMutex) *AccountService {
	return &AccountService{
		m:         m,
		secret:    []byte(cfg.SecretKey),
		acctLocks: acctLocks,
		chanLocks: chanLocks,
	}
}

// Register creates a new account and returns its first capability token.
// Usernames are reserved forever, so a soft-deleted account still blocks
// re-registration with common.ErrorAlreadyExists.
func (s *AccountService) Register(ctx context.Context, username, displayName, credential, publicKey string) (string, error) {
	if err := checkUsername(username); err != nil {
		return "", err
	}
	if err := checkDisplayName(displayName); err != nil {
		return "", err
	}
	if err := checkCredential(credential); err != nil {
		return "", err
	}
	if err := checkPublicKey(publicKey); err != nil {
		return "", err
	}

	token, err := common.MakeRandTokenString(capabilityTokenBytes)
	if err != nil {
		return "", fmt.Errorf("error generating capability token: %w", err)
	}

	account := &models.Account{
		Username:         username,
		DisplayName:      displayName,
		CredentialHash:   s.credentialDigest(credential, username),
		ValidTokenHashes: []string{common.SHA256Hex(token)},
		Channels:         make(map[string]models.KeyMaterial),
		PublicKey:        publicKey,
		CreatedAt:        time.Now().Unix(),
	}

	s.acctLocks.Lock(username)
	defer s.acctLocks.Unlock(username)

	if err := s.m.Accounts().Create(ctx, account); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return "", common.ErrorAlreadyExists
		}
		return "", fmt.Errorf("error creating account: %w", err)
	}

	return token, nil
}

// Login verifies the credential and issues a fresh capability token,
// appended to the account's valid session set.
func (s *AccountService) Login(ctx context.Context, username, credential string) (string, error) {
	if err := checkUsername(username); err != nil {
		return "", err
	}
	if err := checkCredential(credential); err != nil {
		return "", err
	}

	s.acctLocks.Lock(username)
	defer s.acctLocks.Unlock(username)

	account, err := s.m.Accounts().Get(ctx, username)
	if err != nil {
		return "", err
	}
	if account.Deleted {
		return "", common.ErrorNotFound
	}

	if !s.checkCredential(account.CredentialHash, s.credentialDigest(credential, username)) {
		return "", common.ErrorUnauthorized
	}

	token, err := common.MakeRandTokenString(capabilityTokenBytes)
	if err != nil {
		return "", fmt.Errorf("error generating capability token: %w", err)
	}

	account.ValidTokenHashes = append(account.ValidTokenHashes, common.SHA256Hex(token))
	if err := s.m.Accounts().Update(ctx, account); err != nil {
		return "", fmt.Errorf("error saving session: %w", err)
	}

	return token, nil
}

// Validate checks that capability is a live session token for username.
// Returns nil on success, common.ErrorNotFound for unknown or deleted
// accounts, and common.ErrorUnauthorized for a bad token.
func (s *AccountService) Validate(ctx context.Context, username, capability string) error {
	if username == "" || capability == "" {
		return common.ErrorUnauthorized
	}

	account, err := s.m.Accounts().Get(ctx, username)
	if err != nil {
		return err
	}
	if account.Deleted {
		return common.ErrorNotFound
	}

	if !account.HasToken(common.SHA256Hex(capability)) {
		return common.ErrorUnauthorized
	}
	return nil
}

// RevokeOthers resets the account's session set to exactly the digest of
// keep, logging out every other session. Calling it twice is a no-op the
// second time.
func (s *AccountService) RevokeOthers(ctx context.Context, username, keep string) error {
	s.acctLocks.Lock(username)
	defer s.acctLocks.Unlock(username)

	account, err := s.m.Accounts().Get(ctx, username)
	if err != nil {
		return err
	}

	account.ValidTokenHashes = []string{common.SHA256Hex(keep)}
	if err := s.m.Accounts().Update(ctx, account); err != nil {
		return fmt.Errorf("error saving sessions: %w", err)
	}
	return nil
}

// Purge soft-deletes the account: the record is scrubbed in place and the
// username stays reserved. The user is removed from every channel they
// belong to and their authored messages are scrubbed from those channels'
// batches.
func (s *AccountService) Purge(ctx context.Context, username string) error {
	account, err := s.m.Accounts().Get(ctx, username)
	if err != nil {
		return err
	}

	// Channel locks come first, account lock last; same order as the
	// membership operations in ChannelService.
	for channelID := range account.Channels {
		if err := s.scrubChannel(ctx, channelID, username); err != nil {
			return err
		}
	}

	s.acctLocks.Lock(username)
	defer s.acctLocks.Unlock(username)

	account, err = s.m.Accounts().Get(ctx, username)
	if err != nil {
		return err
	}

	account.DisplayName = "Deleted User"
	account.CredentialHash = ""
	account.ValidTokenHashes = []string{}
	account.Channels = make(map[string]models.KeyMaterial)
	account.PublicKey = ""
	account.Deleted = true
	account.CreatedAt = 0

	if err := s.m.Accounts().Update(ctx, account); err != nil {
		return fmt.Errorf("error scrubbing account: %w", err)
	}
	return nil
}

// Get returns the full account record, or common.ErrorNotFound.
func (s *AccountService) Get(ctx context.Context, username string) (*models.Account, error) {
	if err := checkUsername(username); err != nil {
		return nil, err
	}
	return s.m.Accounts().Get(ctx, username)
}

// Channels returns the names of the channels the user belongs to, keyed by
// channel id. Channels whose record cannot be read come back as
// "Unknown Channel" rather than failing the whole listing.
func (s *AccountService) Channels(ctx context.Context, username string) (map[string]string, error) {
	account, err := s.m.Accounts().Get(ctx, username)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(account.Channels))
	for channelID := range account.Channels {
		channel, err := s.m.Channels().Get(ctx, channelID)
		if err != nil {
			names[channelID] = "Unknown Channel"
			continue
		}
		names[channelID] = channel.Name
	}
	return names, nil
}

// --- helpers below ---

// credentialDigest derives the stored credential hash: SHA-256 over the
// credential, the server secret, and the reversed username. The salt is not
// per-account random; see the config secret.
func (s *AccountService) credentialDigest(credential, username string) string {
	h := sha256.New()
	h.Write([]byte(credential))
	h.Write(s.secret)
	h.Write([]byte(reverseString(username)))
	return hex.EncodeToString(h.Sum(nil))
}

func (s *AccountService) checkCredential(stored, candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
}

// scrubChannel removes username from one channel and filters their messages
// out of every batch, under the channel lock.
func (s *AccountService) scrubChannel(ctx context.Context, channelID, username string) error {
	s.chanLocks.Lock(channelID)
	defer s.chanLocks.Unlock(channelID)

	channel, err := s.m.Channels().Get(ctx, channelID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return err
	}

	for index := 1; index <= channel.LatestBatch; index++ {
		batch, err := s.m.Messages().ReadBatch(ctx, channelID, index)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				continue
			}
			return err
		}

		kept := batch[:0]
		for _, msg := range batch {
			if msg.Author != username {
				kept = append(kept, msg)
			}
		}
		if len(kept) == len(batch) {
			continue
		}
		if err := s.m.Messages().WriteBatch(ctx, channelID, index, kept); err != nil {
			return err
		}
	}

	if channel.RemoveMember(username) {
		if err := s.m.Channels().Update(ctx, channel); err != nil {
			return err
		}
	}
	return nil
}

func reverseString(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
