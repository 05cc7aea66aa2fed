// Package repomanager hands out the repositories backing the server, so the
// services depend on one seam instead of individual storage details.
package repomanager

import (
	"github.com/avoron/tinychat/internal/server/repositories/accounts"
	"github.com/avoron/tinychat/internal/server/repositories/channels"
	"github.com/avoron/tinychat/internal/server/repositories/messages"
)

type Manager interface {
	Accounts() accounts.Repository
	Channels() channels.Repository
	Messages() messages.Repository
	Close() error
}
