package memcache

import (
	"context"
	"time"
)

// Noop never stores anything. Used when CACHE_DRIVER=none and in tests.
type Noop struct{}

func (Noop) Get(context.Context, string, any) (bool, error)        { return false, nil }
func (Noop) Set(context.Context, string, any, time.Duration) error { return nil }
func (Noop) Del(context.Context, string) error                     { return nil }
func (Noop) Clear(context.Context) error                           { return nil }
