package main

import (
	"context"

	"github.com/sells-group/outreach-research/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store)
}
