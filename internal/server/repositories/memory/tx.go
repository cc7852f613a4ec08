package memory

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/ticketdesk/internal/dbx"
)

// Transactor serializes InTx callbacks with a mutex. fn receives a nil DBTX;
// in-memory repositories ignore it. InTx must not be nested.
type Transactor struct {
	mu sync.Mutex
}

func (t *Transactor) InTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return fn(ctx, nil)
}
