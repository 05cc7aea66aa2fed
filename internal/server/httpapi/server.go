// Package httpapi exposes the request/response API: registration, login,
// channel management, message history, and the send-message entry point.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/avoron/tinychat/internal/logging"
	"github.com/avoron/tinychat/internal/server/services"
)

type Server struct {
	address  string
	logger   logging.Logger
	accounts *services.AccountService
	channels *services.ChannelService
	messages *services.MessageService
	dispatch *services.DispatchService
}

func NewServer(address string, logger logging.Logger,
	accounts *services.AccountService, channels *services.ChannelService,
	messages *services.MessageService, dispatch *services.DispatchService) *Server {
	return &Server{
		address:  address,
		logger:   logger.With("module", "httpapi"),
		accounts: accounts,
		channels: channels,
		messages: messages,
		dispatch: dispatch,
	}
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.address, Handler: s.Routes()}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping http server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting http server...", "address", s.address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Routes builds the API handler. Exported so tests can drive it through
// httptest without binding a port.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /login", s.handleLogin)

	// send_message authenticates inside the dispatch pipeline
	mux.HandleFunc("POST /send_message", s.handleSendMessage)

	mux.HandleFunc("POST /logout_all_other_sessions", s.auth(s.handleLogoutOthers))
	mux.HandleFunc("POST /delete_account", s.auth(s.handleDeleteAccount))
	mux.HandleFunc("POST /create_channel", s.auth(s.handleCreateChannel))
	mux.HandleFunc("POST /delete_channel", s.auth(s.handleDeleteChannel))
	mux.HandleFunc("POST /add_member_to_channel", s.auth(s.handleAddMember))
	mux.HandleFunc("POST /remove_member_from_channel", s.auth(s.handleRemoveMember))

	mux.HandleFunc("GET /channels/{id}/about", s.auth(s.handleChannelAbout))
	mux.HandleFunc("GET /channels/{id}/messages", s.auth(s.handleChannelMessages))
	mux.HandleFunc("GET /users/{username}/about", s.auth(s.handleUserAbout))
	mux.HandleFunc("GET /get_self_channels", s.auth(s.handleSelfChannels))

	return mux
}
