package client

import (
	"context"

	"github.com/heartbook/heartbook/client/internal/shardqueue"
)

// executor abstracts the sharded write queue. Keys are collection filenames.
type executor interface {
	Submit(context.Context, string, shardqueue.Job) error
	Barrier(context.Context, string) error
	Stop()
}
