// Package server wires the chat server together: storage, services, the
// realtime registry, and the two network frontends (HTTP API and
// websocket endpoint).
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/avoron/tinychat/internal/lockx"
	"github.com/avoron/tinychat/internal/logging"
	"github.com/avoron/tinychat/internal/server/config"
	"github.com/avoron/tinychat/internal/server/httpapi"
	"github.com/avoron/tinychat/internal/server/realtime"
	"github.com/avoron/tinychat/internal/server/repositories/repomanager"
	"github.com/avoron/tinychat/internal/server/services"
	"github.com/avoron/tinychat/internal/server/ws"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	manager  repomanager.Manager
	accounts *services.AccountService
	channels *services.ChannelService
	messages *services.MessageService
	dispatch *services.DispatchService
	registry *realtime.Registry
}

func NewApp(c *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	m, err := repomanager.NewBoltManager(c.DataFilePath)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	// Shared per-key locks: channel mutations and message appends must
	// serialize on the same channel lock, membership updates on the same
	// account lock.
	acctLocks := lockx.New()
	chanLocks := lockx.New()

	accounts := services.NewAccountService(m, c, acctLocks, chanLocks)
	channels := services.NewChannelService(m, acctLocks, chanLocks)
	messages := services.NewMessageService(m, c, chanLocks)
	registry := realtime.NewRegistry(accounts, logger)
	dispatch := services.NewDispatchService(accounts, messages, registry, logger)

	return &App{
		config:   c,
		logger:   logger,
		manager:  m,
		accounts: accounts,
		channels: channels,
		messages: messages,
		dispatch: dispatch,
		registry: registry,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	httpSrv := httpapi.NewServer(app.config.EndpointAddrHTTP, app.logger,
		app.accounts, app.channels, app.messages, app.dispatch)
	wsSrv := ws.NewServer(app.config.EndpointAddrWS, app.registry, app.logger,
		app.config.DeliveryTimeout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpSrv.Run(gctx) })
	g.Go(func() error { return wsSrv.Run(gctx) })

	if err := g.Wait(); err != nil {
		app.logger.Error(ctx, err.Error())
	}

	if err := app.manager.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}

	app.logger.Info(ctx, "App stopped.")
}
