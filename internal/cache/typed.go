// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// GetJSON decodes the cached value for key into a T.
func GetJSON[T any](ctx context.Context, c Cache, key string) (T, error) {
	var v T
	b, err := c.Get(ctx, key)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return v, err
	}
	return v, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON[T any](ctx context.Context, c Cache, key string, v T, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, b, ttl)
}

// Remember returns the cached value for key or computes, stores and returns it.
// Cache failures other than a miss are ignored and load is called directly.
func Remember[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if v, err := GetJSON[T](ctx, c, key); err == nil {
		return v, nil
	} else if !errors.Is(err, ErrCacheMiss) && !errors.Is(err, ErrCacheClosed) {
		_ = c.Delete(ctx, key)
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	_ = SetJSON(ctx, c, key, v, ttl)
	return v, nil
}
