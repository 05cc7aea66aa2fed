package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/avoron/tinychat/internal/common"
	"github.com/avoron/tinychat/internal/server/models"
)

const (
	cookieToken    = "token"
	cookieUsername = "username"
)

// authedHandler is a handler that runs with verified credentials.
type authedHandler func(w http.ResponseWriter, r *http.Request, username, capability string)

// credentialCookies extracts the session cookies from a request.
func credentialCookies(r *http.Request) (username, capability string, ok bool) {
	tc, err := r.Cookie(cookieToken)
	if err != nil {
		return "", "", false
	}
	uc, err := r.Cookie(cookieUsername)
	if err != nil {
		return "", "", false
	}
	return uc.Value, tc.Value, true
}

// auth wraps a handler with cookie-based session validation. A missing or
// dead session never reaches the wrapped handler.
func (s *Server) auth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, capability, ok := credentialCookies(r)
		if !ok {
			s.writeError(w, r, fmt.Errorf("please provide token and username cookies: %w", common.ErrorUnauthorized))
			return
		}
		if err := s.accounts.Validate(r.Context(), username, capability); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				err = fmt.Errorf("no user belongs to that username: %w", common.ErrorUnauthorized)
			}
			s.writeError(w, r, err)
			return
		}
		next(w, r, username, capability)
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username    string `json:"username"`
		DisplayName string `json:"displayname"`
		Password    string `json:"password"`
		PublicKey   string `json:"publicKey"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	token, err := s.accounts.Register(r.Context(), req.Username, req.DisplayName, req.Password, req.PublicKey)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, map[string]string{"generatedToken": token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	token, err := s.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, map[string]string{"generatedToken": token})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	username, capability, ok := credentialCookies(r)
	if !ok {
		s.writeError(w, r, fmt.Errorf("please provide token and username cookies: %w", common.ErrorUnauthorized))
		return
	}

	var req struct {
		Text    string `json:"text"`
		Channel string `json:"channel"`
		TempID  string `json:"tempID"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	msg, err := s.dispatch.SendMessage(r.Context(), username, capability, req.Channel, req.Text, req.TempID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, msg)
}

func (s *Server) handleLogoutOthers(w http.ResponseWriter, r *http.Request, username, capability string) {
	if err := s.accounts.RevokeOthers(r.Context(), username, capability); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, nil)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request, username, _ string) {
	if err := s.accounts.Purge(r.Context(), username); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, nil)
}

func (s *Server) handleCreateChannel(w http.ResponseWriter, r *http.Request, username, _ string) {
	var req struct {
		ChannelName  string `json:"channelName"`
		EncryptedKey string `json:"encryptedChannelKey"`
		IV           string `json:"iv"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	key := models.KeyMaterial{EncryptedKey: req.EncryptedKey, IV: req.IV}
	channelID, err := s.channels.Create(r.Context(), req.ChannelName, username, key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, map[string]string{"channelID": channelID})
}

func (s *Server) handleDeleteChannel(w http.ResponseWriter, r *http.Request, username, _ string) {
	var req struct {
		ChannelID string `json:"channelID"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.channels.Delete(r.Context(), req.ChannelID, username); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, nil)
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request, username, _ string) {
	var req struct {
		ChannelID    string `json:"channelID"`
		NewMember    string `json:"newMember"`
		EncryptedKey string `json:"encryptedChannelKey"`
		IV           string `json:"iv"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	key := models.KeyMaterial{EncryptedKey: req.EncryptedKey, IV: req.IV}
	if err := s.channels.AddMember(r.Context(), req.ChannelID, username, req.NewMember, key); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, nil)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request, username, _ string) {
	var req struct {
		ChannelID string `json:"channelID"`
		Member    string `json:"newMember"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.channels.RemoveMember(r.Context(), req.ChannelID, username, req.Member); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, nil)
}

func (s *Server) handleChannelAbout(w http.ResponseWriter, r *http.Request, username, _ string) {
	channel, err := s.channels.About(r.Context(), r.PathValue("id"), username)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, channel)
}

func (s *Server) handleChannelMessages(w http.ResponseWriter, r *http.Request, username, _ string) {
	index, err := strconv.Atoi(r.URL.Query().Get("batch"))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("batch should be a positive integer: %w", common.ErrorValidation))
		return
	}

	batch, err := s.messages.ReadBatch(r.Context(), r.PathValue("id"), username, index)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, batch)
}

// handleUserAbout returns the full record for the requester's own account
// and the public profile for anyone else.
func (s *Server) handleUserAbout(w http.ResponseWriter, r *http.Request, username, _ string) {
	target := r.PathValue("username")

	account, err := s.accounts.Get(r.Context(), target)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if target == username {
		s.writeResult(w, account)
		return
	}
	s.writeResult(w, account.Profile())
}

func (s *Server) handleSelfChannels(w http.ResponseWriter, r *http.Request, username, _ string) {
	names, err := s.accounts.Channels(r.Context(), username)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, names)
}
