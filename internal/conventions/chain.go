package conventions

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/bondlab/internal/contracts"
	"github.com/wonny/bondlab/pkg/logger"
)

// Chain queries stores in order and returns the first hit.
// A failing store is logged and skipped so a database outage falls back to
// the built-in conventions.
type Chain struct {
	stores []contracts.ConventionStore
	logger *logger.Logger
}

// NewChain creates a chain over stores, highest priority first.
func NewChain(log *logger.Logger, stores ...contracts.ConventionStore) *Chain {
	return &Chain{stores: stores, logger: log.WithComponent("conventions")}
}

// LookupIdentifier implements contracts.ConventionStore.
func (c *Chain) LookupIdentifier(ctx context.Context, identifier string) (*contracts.ConventionRecord, error) {
	return c.lookup(ctx, "identifier", identifier, func(s contracts.ConventionStore) (*contracts.ConventionRecord, error) {
		return s.LookupIdentifier(ctx, identifier)
	})
}

// LookupIssuer implements contracts.ConventionStore.
func (c *Chain) LookupIssuer(ctx context.Context, issuerPattern string) (*contracts.ConventionRecord, error) {
	return c.lookup(ctx, "issuer", issuerPattern, func(s contracts.ConventionStore) (*contracts.ConventionRecord, error) {
		return s.LookupIssuer(ctx, issuerPattern)
	})
}

func (c *Chain) lookup(ctx context.Context, kind, key string, fn func(contracts.ConventionStore) (*contracts.ConventionRecord, error)) (*contracts.ConventionRecord, error) {
	var lastErr error
	for i, s := range c.stores {
		rec, err := fn(s)
		if err == nil {
			return rec, nil
		}
		if errors.Is(err, contracts.ErrNotFound) {
			continue
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.WithError(err).WithFields(map[string]interface{}{
			"store": i,
			"kind":  kind,
			"key":   key,
		}).Warn("convention store lookup failed")
		lastErr = err
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %s %q (last store error: %v)", contracts.ErrNotFound, kind, key, lastErr)
	}
	return nil, fmt.Errorf("%w: %s %q", contracts.ErrNotFound, kind, key)
}
