// Package models holds the persisted record types of the chat server.
package models

// KeyMaterial is the client-encrypted channel key a member stores for one
// channel. The server never sees the plaintext key.
type KeyMaterial struct {
	EncryptedKey string `json:"encryptedKey"`
	IV           string `json:"iv"`
}

// Account is the stored record of one registered user, keyed by username.
// Accounts are never physically removed; Purge scrubs the fields and sets
// Deleted, keeping the username reserved.
type Account struct {
	Username       string `json:"username"`
	DisplayName    string `json:"displayname"`
	CredentialHash string `json:"passwordHash"`
	// ValidTokenHashes holds one-way digests of the live capability
	// tokens. The tokens themselves are never persisted.
	ValidTokenHashes []string               `json:"validTokens"`
	Channels         map[string]KeyMaterial `json:"channels"`
	PublicKey        string                 `json:"publicKey"`
	Deleted          bool                   `json:"deleted"`
	CreatedAt        int64                  `json:"accountCreated"`
}

// HasToken reports whether tokenHash is among the account's valid session
// digests.
func (a *Account) HasToken(tokenHash string) bool {
	for _, h := range a.ValidTokenHashes {
		if h == tokenHash {
			return true
		}
	}
	return false
}

// Profile is the public view of an account, returned to other users.
type Profile struct {
	DisplayName string `json:"displayname"`
	PublicKey   string `json:"publicKey"`
	Deleted     bool   `json:"deleted"`
	CreatedAt   int64  `json:"accountCreated"`
}

// Profile returns the filtered public view of the account.
func (a *Account) Profile() *Profile {
	return &Profile{
		DisplayName: a.DisplayName,
		PublicKey:   a.PublicKey,
		Deleted:     a.Deleted,
		CreatedAt:   a.CreatedAt,
	}
}
