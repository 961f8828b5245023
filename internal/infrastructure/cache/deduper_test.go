package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestDeduper_ClaimOnceUntilReleasedOrExpired(t *testing.T) {
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	d := NewDeduper(rdb)
	ctx := context.Background()
	key := "notif:loan_default:7:42:"

	ok, err := d.Claim(ctx, key, time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = d.Claim(ctx, key, time.Hour)
	require.NoError(t, err)
	require.False(t, ok, "second claim must be rejected")

	require.NoError(t, d.Release(ctx, key))
	ok, err = d.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok, "claim after release")

	s.FastForward(2 * time.Minute)
	ok, err = d.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok, "claim after ttl")
}

func TestDeduper_StoreDown(t *testing.T) {
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	s.Close()

	if _, err := NewDeduper(rdb).Claim(context.Background(), "k", time.Second); err == nil {
		t.Fatalf("expected error when redis is down")
	}
}
