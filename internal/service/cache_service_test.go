package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-fees-api/pkg/errors"
)

type memoryCacheRepo struct {
	items   map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
	deleted []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	m.ttls[key] = ttl
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range m.items {
		if strings.HasPrefix(k, prefix) {
			delete(m.items, k)
			m.deleted = append(m.deleted, k)
		}
	}
	return nil
}

func TestCacheServiceRoundTrip(t *testing.T) {
	repo := newMemoryCacheRepo()
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, 0, nil, true)
	ctx := context.Background()

	var out map[string]int
	hit, err := svc.Get(ctx, "fees:summary:2025:Term1", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, "fees:summary:2025:Term1", map[string]int{"students": 3}, 0))
	assert.Equal(t, 10*time.Minute, repo.ttls["fees:summary:2025:Term1"])

	hit, err = svc.Get(ctx, "fees:summary:2025:Term1", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 3, out["students"])

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheHits))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheMisses))
	assert.InDelta(t, 0.5, testutil.ToFloat64(metrics.cacheHitRatio), 0.001)

	require.NoError(t, svc.Invalidate(ctx, summaryCachePattern))
	assert.Equal(t, []string{"fees:summary:2025:Term1"}, repo.deleted)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, nil, false)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "k", 1, 0))
	assert.Empty(t, repo.items)

	var out int
	hit, err := svc.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.False(t, svc.Enabled())
}

func TestCacheServiceBackendError(t *testing.T) {
	repo := newMemoryCacheRepo()
	repo.getErr = errors.New("connection reset")
	svc := NewCacheService(repo, nil, time.Minute, nil, true)

	var out int
	hit, err := svc.Get(context.Background(), "k", &out)
	require.Error(t, err)
	assert.False(t, hit)
}

func TestCacheServiceRememberCoalescesLoads(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(&lockedCacheRepo{inner: repo}, nil, time.Minute, nil, true)

	var loads int32
	release := make(chan struct{})
	load := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&loads, 1)
		<-release
		return map[string]int{"students": 7}, nil
	}

	var wg sync.WaitGroup
	results := make([]map[string]int, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Remember(context.Background(), "fees:summary:2025:Term2", &results[i], 0, load)
			assert.NoError(t, err)
		}(i)
	}

	// give every caller time to join the in-flight load
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
	for _, r := range results {
		assert.Equal(t, 7, r["students"])
	}

	var again map[string]int
	hit, err := svc.Remember(context.Background(), "fees:summary:2025:Term2", &again, 0, load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
}

func TestCacheServiceRememberPropagatesLoadError(t *testing.T) {
	svc := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, false)

	var out int
	hit, err := svc.Remember(context.Background(), "k", &out, 0, func(ctx context.Context) (interface{}, error) {
		return nil, appErrors.ErrInternal
	})
	assert.False(t, hit)
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
}

type lockedCacheRepo struct {
	mu    sync.Mutex
	inner *memoryCacheRepo
}

func (l *lockedCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.Get(ctx, key, dest)
}

func (l *lockedCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.Set(ctx, key, value, ttl)
}

func (l *lockedCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.DeleteByPattern(ctx, pattern)
}
