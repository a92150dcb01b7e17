package lock_test

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fidelia-cart/internal/lock"
)

func exerciseExclusive(t *testing.T, locker lock.Locker) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var inside, maxInside, total int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithLock(ctx, "cart-1", func(context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				atomic.AddInt32(&total, 1)
				return nil
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, maxInside)
	require.EqualValues(t, 20, total)
}

func TestLocalSerialisesSameKey(t *testing.T) {
	exerciseExclusive(t, &lock.Local{})
}

func TestLocalHonoursContext(t *testing.T) {
	var l lock.Local
	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = l.WithLock(context.Background(), "k", func(context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.WithLock(ctx, "k", func(context.Context) error { return nil })
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, l.WithLock(context.Background(), "other", func(context.Context) error { return nil }))
}

func TestRedisSerialisesSameKey(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	exerciseExclusive(t, lock.Redis{R: client, RetryBackoff: time.Millisecond})
	require.False(t, mr.Exists("fidelia:lock:cart-1"))
}

func TestRedisReleasesOnError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	locker := lock.Redis{R: client, Prefix: "test:"}
	boom := context.Canceled
	err := locker.WithLock(context.Background(), "k", func(context.Context) error { return boom })
	require.ErrorIs(t, err, boom)
	require.False(t, mr.Exists("test:k"))

	require.Error(t, lock.Redis{}.WithLock(context.Background(), "k", func(context.Context) error { return nil }))
}

func TestRedisLogsFailedRelease(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	logs := &bytes.Buffer{}
	locker := lock.Redis{R: client, Prefix: "test:", Logger: zerolog.New(logs)}
	err := locker.WithLock(context.Background(), "k", func(context.Context) error {
		mr.Close()
		return nil
	})
	require.NoError(t, err)
	require.Contains(t, logs.String(), "lock_release_failed")
	require.Contains(t, logs.String(), "test:k")
}
