package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Cache stores completion responses by request key.
type Cache interface {
	Get(ctx context.Context, key string) (Response, bool, error)
	Put(ctx context.Context, key string, resp Response) error
}

// CachingCompleter answers repeated requests from a Cache. Cache failures are
// logged and bypassed; they never fail a completion.
type CachingCompleter struct {
	next      Completer
	cache     Cache
	namespace string
	logger    *zap.Logger
}

// NewCachingCompleter wraps next. namespace separates entries produced by
// different backends or models sharing one cache.
func NewCachingCompleter(next Completer, cache Cache, namespace string, logger *zap.Logger) *CachingCompleter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachingCompleter{next: next, cache: cache, namespace: namespace, logger: logger}
}

// Complete returns a cached response when one exists, otherwise calls the
// wrapped Completer and stores its successful response.
func (c *CachingCompleter) Complete(ctx context.Context, req Request) (Response, error) {
	key, err := RequestKey(c.namespace, req)
	if err != nil {
		return c.next.Complete(ctx, req)
	}

	if resp, ok, err := c.cache.Get(ctx, key); err != nil {
		c.logger.Warn("completion cache read failed", zap.Error(err))
	} else if ok {
		return resp, nil
	}

	resp, err := c.next.Complete(ctx, req)
	if err != nil {
		return resp, err
	}

	if err := c.cache.Put(ctx, key, resp); err != nil {
		c.logger.Warn("completion cache write failed", zap.Error(err))
	}
	return resp, nil
}

// RequestKey derives a stable cache key from the canonical JSON encoding of req.
func RequestKey(namespace string, req Request) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(namespace))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}
