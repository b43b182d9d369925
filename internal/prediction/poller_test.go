package prediction

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/loan-portal/internal/cache"
	"github.com/bobmcallan/loan-portal/internal/client"
	"github.com/bobmcallan/loan-portal/internal/common"
	"github.com/bobmcallan/loan-portal/internal/config"
	"github.com/bobmcallan/loan-portal/internal/failure"
)

const readyBody = `{"statement_analysis": {"bank_name": "Chase", "for_against": "Reasons for: - A", "loan_decision": 1}, "statement_analysis_ref": "ref-123"}`

// scriptedBackend replays responses in order, repeating the last one.
type scriptedBackend struct {
	mu        sync.Mutex
	responses []*client.Response
	err       error
	calls     int
	keys      []string
}

func (b *scriptedBackend) GetLoanPrediction(_ context.Context, key string) (*client.Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	b.keys = append(b.keys, key)
	if b.err != nil {
		return nil, b.err
	}
	i := b.calls - 1
	if i >= len(b.responses) {
		i = len(b.responses) - 1
	}
	return b.responses[i], nil
}

func (b *scriptedBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

type memKV struct {
	mu sync.Mutex
	m  map[string]string
}

func (k *memKV) Get(_ context.Context, key string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	v, ok := k.m[key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func (k *memKV) Set(_ context.Context, key, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.m == nil {
		k.m = map[string]string{}
	}
	k.m[key] = value
	return nil
}

func (k *memKV) Delete(_ context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.m, key)
	return nil
}

func (k *memKV) GetAll(context.Context) (map[string]string, error) {
	return k.m, nil
}

func fastConfig() config.PredictionConfig {
	return config.PredictionConfig{
		PollInterval: "1ms",
		MaxInterval:  "5ms",
		MaxAttempts:  4,
		MaxWait:      "2s",
		CacheTTL:     "1m",
		CacheEntries: 10,
	}
}

func resp(status int, body string) *client.Response {
	return &client.Response{StatusCode: status, Body: []byte(body)}
}

func TestFetch_Ready(t *testing.T) {
	b := &scriptedBackend{responses: []*client.Response{resp(http.StatusOK, readyBody)}}
	p := NewPoller(b, fastConfig(), common.NewSilentLogger())

	out := p.Fetch(context.Background(), "statements/abc.pdf")
	require.Equal(t, StateReady, out.State)
	require.NotNil(t, out.Response)
	assert.Equal(t, "ref-123", out.Response.StatementAnalysisRef)
	assert.True(t, out.Response.StatementAnalysis.Approved())
	assert.Equal(t, []string{"statements/abc.pdf"}, b.keys)
}

func TestFetch_Pending(t *testing.T) {
	for _, status := range []int{http.StatusAccepted, http.StatusTooEarly} {
		b := &scriptedBackend{responses: []*client.Response{resp(status, "")}}
		out := NewPoller(b, fastConfig(), common.NewSilentLogger()).Fetch(context.Background(), "statements/a.pdf")
		assert.Equal(t, StatePending, out.State, "status %d", status)
		assert.Nil(t, out.Err)
	}
}

func TestFetch_ServerError(t *testing.T) {
	b := &scriptedBackend{responses: []*client.Response{resp(http.StatusInternalServerError, "model crashed")}}
	out := NewPoller(b, fastConfig(), common.NewSilentLogger()).Fetch(context.Background(), "statements/a.pdf")

	require.Equal(t, StateFailed, out.State)
	assert.Equal(t, failure.KindServer, failure.KindOf(out.Err))
	assert.Equal(t, http.StatusInternalServerError, failure.StatusOf(out.Err))
	assert.Contains(t, out.Err.Error(), "model crashed")
	assert.Equal(t, ServerFailureMessage, failure.MessageOf(out.Err, ""))
}

func TestFetch_MalformedEnvelope(t *testing.T) {
	bodies := []string{
		`not json`,
		`{"statement_analysis": {"loan_decision": 1}}`,
		`{"statement_analysis_ref": "r"}`,
		`{"statement_analysis": {"loan_decision": 3}, "statement_analysis_ref": "r"}`,
	}
	for _, body := range bodies {
		b := &scriptedBackend{responses: []*client.Response{resp(http.StatusOK, body)}}
		out := NewPoller(b, fastConfig(), common.NewSilentLogger()).Fetch(context.Background(), "statements/a.pdf")
		assert.Equal(t, StateFailed, out.State, body)
		assert.Equal(t, failure.KindServer, failure.KindOf(out.Err), body)
	}
}

func TestFetch_TransportError(t *testing.T) {
	b := &scriptedBackend{err: errors.New("connection refused")}
	out := NewPoller(b, fastConfig(), common.NewSilentLogger()).Fetch(context.Background(), "statements/a.pdf")
	assert.Equal(t, StateFailed, out.State)
	assert.Equal(t, failure.KindServer, failure.KindOf(out.Err))
}

func TestFetch_CachesReady(t *testing.T) {
	b := &scriptedBackend{responses: []*client.Response{resp(http.StatusOK, readyBody)}}
	rc := cache.New(time.Minute, 10)
	p := NewPoller(b, fastConfig(), common.NewSilentLogger(), WithCache(rc))

	first := p.Fetch(context.Background(), "statements/a.pdf")
	second := p.Fetch(context.Background(), "statements/a.pdf")
	assert.Equal(t, StateReady, first.State)
	assert.Equal(t, StateReady, second.State)
	assert.Equal(t, 1, b.callCount())

	rc.InvalidateTag(cache.PredictionTag)
	p.Fetch(context.Background(), "statements/a.pdf")
	assert.Equal(t, 2, b.callCount())
}

func TestCached_NeverCallsBackend(t *testing.T) {
	b := &scriptedBackend{responses: []*client.Response{resp(http.StatusOK, readyBody)}}
	rc := cache.New(time.Minute, 10)
	p := NewPoller(b, fastConfig(), common.NewSilentLogger(), WithCache(rc))

	_, ok := p.Cached("statements/a.pdf")
	assert.False(t, ok)

	p.Fetch(context.Background(), "statements/a.pdf")
	got, ok := p.Cached("statements/a.pdf")
	require.True(t, ok)
	assert.Equal(t, "ref-123", got.StatementAnalysisRef)

	rc.InvalidateTag(cache.PredictionTag)
	_, ok = p.Cached("statements/a.pdf")
	assert.False(t, ok)
	assert.Equal(t, 1, b.callCount())
}

func TestCached_NoCache(t *testing.T) {
	p := NewPoller(&scriptedBackend{}, fastConfig(), common.NewSilentLogger())
	_, ok := p.Cached("statements/a.pdf")
	assert.False(t, ok)
}

func TestFetch_DoesNotCachePending(t *testing.T) {
	b := &scriptedBackend{responses: []*client.Response{resp(http.StatusAccepted, ""), resp(http.StatusOK, readyBody)}}
	rc := cache.New(time.Minute, 10)
	p := NewPoller(b, fastConfig(), common.NewSilentLogger(), WithCache(rc))

	assert.Equal(t, StatePending, p.Fetch(context.Background(), "statements/a.pdf").State)
	assert.Equal(t, 0, rc.Len())
	assert.Equal(t, StateReady, p.Fetch(context.Background(), "statements/a.pdf").State)
}

func TestFetch_RemembersRef(t *testing.T) {
	b := &scriptedBackend{responses: []*client.Response{resp(http.StatusOK, readyBody)}}
	kv := &memKV{}
	p := NewPoller(b, fastConfig(), common.NewSilentLogger(), WithRefStore(kv))

	p.Fetch(context.Background(), "statements/a.pdf")
	ref, err := p.RefFor(context.Background(), "statements/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "ref-123", ref)
}

func TestRefFor_NoStore(t *testing.T) {
	p := NewPoller(&scriptedBackend{}, fastConfig(), common.NewSilentLogger())
	_, err := p.RefFor(context.Background(), "statements/a.pdf")
	assert.Error(t, err)
}

func TestWait_PendingThenReady(t *testing.T) {
	b := &scriptedBackend{responses: []*client.Response{
		resp(http.StatusAccepted, ""),
		resp(http.StatusAccepted, ""),
		resp(http.StatusOK, readyBody),
	}}
	out := NewPoller(b, fastConfig(), common.NewSilentLogger()).Wait(context.Background(), "statements/a.pdf")
	assert.Equal(t, StateReady, out.State)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, 3, b.callCount())
}

func TestWait_BoundedAttempts(t *testing.T) {
	b := &scriptedBackend{responses: []*client.Response{resp(http.StatusAccepted, "")}}
	out := NewPoller(b, fastConfig(), common.NewSilentLogger()).Wait(context.Background(), "statements/a.pdf")
	assert.Equal(t, StatePending, out.State)
	assert.Equal(t, 4, b.callCount())
	assert.Equal(t, 4, out.Attempts)
}

func TestWait_FailureStopsImmediately(t *testing.T) {
	b := &scriptedBackend{responses: []*client.Response{resp(http.StatusBadGateway, "upstream")}}
	out := NewPoller(b, fastConfig(), common.NewSilentLogger()).Wait(context.Background(), "statements/a.pdf")
	assert.Equal(t, StateFailed, out.State)
	assert.Equal(t, 1, b.callCount())
}

func TestWait_ContextCancelled(t *testing.T) {
	cfg := fastConfig()
	cfg.PollInterval = "1s"
	cfg.MaxInterval = "1s"
	b := &scriptedBackend{responses: []*client.Response{resp(http.StatusAccepted, "")}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	out := NewPoller(b, cfg, common.NewSilentLogger()).Wait(ctx, "statements/a.pdf")
	assert.Equal(t, StateFailed, out.State)
	assert.ErrorIs(t, out.Err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "pending", StatePending.String())
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "failed", StateFailed.String())
}
