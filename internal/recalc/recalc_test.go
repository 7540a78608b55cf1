package recalc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Tally/internal/catalog"
	"github.com/MikeSquared-Agency/Tally/internal/hermes"
	"github.com/MikeSquared-Agency/Tally/internal/scoring"
	"github.com/MikeSquared-Agency/Tally/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory store.Store. Hooks run before the matching call.
type memStore struct {
	mu          sync.Mutex
	submissions map[string]*scoring.Submission
	malformed   map[string]bool
	results     map[string]*scoring.AssessmentResult
	links       map[string]*scoring.CoupleLink
	listErr     error
	replaces    int

	onGet func(ctx context.Context, id string) error
}

func newMemStore() *memStore {
	return &memStore{
		submissions: make(map[string]*scoring.Submission),
		malformed:   make(map[string]bool),
		results:     make(map[string]*scoring.AssessmentResult),
		links:       make(map[string]*scoring.CoupleLink),
	}
}

func (m *memStore) ListRespondents(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	ids := make([]string, 0, len(m.submissions)+len(m.malformed))
	for id := range m.submissions {
		ids = append(ids, id)
	}
	for id := range m.malformed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memStore) GetSubmission(ctx context.Context, id string) (*scoring.Submission, error) {
	if m.onGet != nil {
		if err := m.onGet(ctx, id); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.malformed[id] {
		return nil, fmt.Errorf("%w: responses of %s", store.ErrMalformedRecord, id)
	}
	sub, ok := m.submissions[id]
	if !ok {
		return nil, nil
	}
	cp := *sub
	return &cp, nil
}

func (m *memStore) SaveSubmission(_ context.Context, sub *scoring.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submissions[sub.RespondentID] = sub
	return nil
}

func (m *memStore) GetResult(_ context.Context, id string) (*scoring.AssessmentResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.results[id], nil
}

func (m *memStore) ReplaceResult(ctx context.Context, r *scoring.AssessmentResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[r.RespondentID] = r
	m.replaces++
	return nil
}

func (m *memStore) GetCoupleLink(_ context.Context, id string) (*scoring.CoupleLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.links[id], nil
}

func (m *memStore) SaveCoupleLink(_ context.Context, l *scoring.CoupleLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[l.PairingID] = l
	return nil
}

func (m *memStore) Close() error { return nil }

// MockHermes implements hermes.Client for testing
type MockHermes struct {
	mock.Mock
}

func (m *MockHermes) Publish(subject string, data interface{}) error {
	args := m.Called(subject, data)
	return args.Error(0)
}

func (m *MockHermes) Subscribe(subject string, handler func(string, []byte)) error {
	args := m.Called(subject, handler)
	return args.Error(0)
}

func (m *MockHermes) Close() {}

func allAnswered(t *testing.T, b *catalog.Bundle, pick int) scoring.Responses {
	t.Helper()
	r := scoring.Responses{}
	for _, q := range b.Questions.All() {
		if _, ok := q.Kind.(catalog.Input); ok {
			r[q.ID] = scoring.Response{Value: "shared budget"}
			continue
		}
		idx := pick % len(q.Options())
		r[q.ID] = scoring.Response{Index: &idx}
	}
	return r
}

func seed(t *testing.T, s *memStore, b *catalog.Bundle, ids ...string) {
	t.Helper()
	for i, id := range ids {
		s.submissions[id] = &scoring.Submission{
			RespondentID: id,
			Attempt:      1,
			Responses:    allAnswered(t, b, i),
			Demographics: scoring.Demographics{"gender": "female"},
			CompletedAt:  time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC),
		}
	}
}

func newCoordinator(t *testing.T, s store.Store, h hermes.Client, opts Options) (*Coordinator, *catalog.Bundle) {
	t.Helper()
	b, err := catalog.Default()
	require.NoError(t, err)
	engine := scoring.NewEngine(catalog.NewStaticProvider(b, discardLogger()), 0, discardLogger())
	return New(s, engine, h, opts, discardLogger()), b
}

func TestRecalculateOne(t *testing.T) {
	s := newMemStore()
	h := &MockHermes{}
	h.On("Publish", hermes.SubjectResultRecalculated("r1"), mock.AnythingOfType("hermes.ResultRecalculatedEvent")).Return(nil)

	c, b := newCoordinator(t, s, h, Options{})
	seed(t, s, b, "r1")

	res, err := c.RecalculateOne(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", res.RespondentID)
	assert.True(t, res.Complete)
	assert.Equal(t, 100.0, res.Overall)
	assert.Same(t, res, s.results["r1"])
	h.AssertExpectations(t)
}

func TestRecalculateOneIdempotent(t *testing.T) {
	s := newMemStore()
	c, b := newCoordinator(t, s, hermes.NopClient{}, Options{})
	seed(t, s, b, "a", "b", "r1")

	first, err := c.RecalculateOne(context.Background(), "r1")
	require.NoError(t, err)
	second, err := c.RecalculateOne(context.Background(), "r1")
	require.NoError(t, err)

	j1, _ := json.Marshal(first)
	j2, _ := json.Marshal(second)
	assert.JSONEq(t, string(j1), string(j2))
	assert.Equal(t, string(j1), string(j2))
}

func TestRecalculateOneErrors(t *testing.T) {
	s := newMemStore()
	c, b := newCoordinator(t, s, hermes.NopClient{}, Options{})
	seed(t, s, b, "no-responses", "no-demographics", "empty-demographics")
	s.submissions["no-responses"].Responses = nil
	s.submissions["no-demographics"].Demographics = nil
	s.submissions["empty-demographics"].Demographics = scoring.Demographics{}
	s.malformed["garbled"] = true

	t.Run("not found", func(t *testing.T) {
		_, err := c.RecalculateOne(context.Background(), "ghost")
		assert.ErrorIs(t, err, scoring.ErrNotFound)
	})

	tests := []struct {
		id     string
		reason string
	}{
		{"no-responses", "missing responses"},
		{"no-demographics", "missing demographics"},
		{"empty-demographics", "missing demographics"},
		{"garbled", "malformed stored submission"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			_, err := c.RecalculateOne(context.Background(), tt.id)
			var pd *scoring.PartialDataError
			require.ErrorAs(t, err, &pd)
			assert.Equal(t, tt.reason, pd.Reason)
			assert.Nil(t, s.results[tt.id], "no result may be written")
		})
	}

	t.Run("malformed keeps cause", func(t *testing.T) {
		_, err := c.RecalculateOne(context.Background(), "garbled")
		assert.ErrorIs(t, err, store.ErrMalformedRecord)
	})
}

func TestRecalculateOneStoreTimeout(t *testing.T) {
	s := newMemStore()
	c, b := newCoordinator(t, s, hermes.NopClient{}, Options{StoreTimeout: 20 * time.Millisecond})
	seed(t, s, b, "slow")
	s.onGet = func(ctx context.Context, _ string) error {
		<-ctx.Done()
		return ctx.Err()
	}

	_, err := c.RecalculateOne(context.Background(), "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRecalculateOneSerialisesRespondent(t *testing.T) {
	s := newMemStore()
	c, b := newCoordinator(t, s, hermes.NopClient{}, Options{})
	seed(t, s, b, "r1")

	var inFlight, peak atomic.Int32
	s.onGet = func(context.Context, string) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.RecalculateOne(context.Background(), "r1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), peak.Load())
	assert.Equal(t, 8, s.replaces)
	assert.Equal(t, 0, c.locks.len())
}

func TestRecalculateAll(t *testing.T) {
	s := newMemStore()
	h := &MockHermes{}
	h.On("Publish", mock.AnythingOfType("string"), mock.Anything).Return(nil)

	c, b := newCoordinator(t, s, h, Options{Workers: 2})
	seed(t, s, b, "a", "b", "c", "d")
	s.submissions["c"].Demographics = nil
	s.malformed["e"] = true

	summary, err := c.RecalculateAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Attempted)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 0, summary.Skipped)
	assert.False(t, summary.Cancelled)

	ids := make([]string, len(summary.Outcomes))
	for i, o := range summary.Outcomes {
		ids[i] = o.RespondentID
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids)
	assert.Equal(t, "missing demographics", summary.Outcomes[2].Reason)
	assert.Equal(t, "malformed stored submission", summary.Outcomes[4].Reason)
	require.NotNil(t, summary.Outcomes[0].Overall)
	assert.Len(t, summary.Failures(), 2)

	h.AssertCalled(t, "Publish", hermes.SubjectRecalcCompleted, mock.AnythingOfType("hermes.RecalcCompletedEvent"))
}

func TestRecalculateAllListFailure(t *testing.T) {
	s := newMemStore()
	s.listErr = errors.New("connection refused")
	c, _ := newCoordinator(t, s, hermes.NopClient{}, Options{})

	_, err := c.RecalculateAll(context.Background())
	assert.ErrorContains(t, err, "list respondents")
}

func TestRecalculateAllTimeoutIsPerRespondent(t *testing.T) {
	s := newMemStore()
	c, b := newCoordinator(t, s, hermes.NopClient{}, Options{Workers: 3, StoreTimeout: 20 * time.Millisecond})
	seed(t, s, b, "fast-1", "slow", "fast-2")
	s.onGet = func(ctx context.Context, id string) error {
		if id != "slow" {
			return nil
		}
		<-ctx.Done()
		return ctx.Err()
	}

	summary, err := c.RecalculateAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	for _, o := range summary.Outcomes {
		if o.RespondentID == "slow" {
			assert.Equal(t, StatusFailed, o.Status)
			assert.Contains(t, o.Reason, "store timeout")
			continue
		}
		assert.Equal(t, StatusSucceeded, o.Status, o.RespondentID)
	}
}

func TestRecalculateAllBoundsConcurrency(t *testing.T) {
	s := newMemStore()
	c, b := newCoordinator(t, s, hermes.NopClient{}, Options{Workers: 2})
	ids := make([]string, 10)
	for i := range ids {
		ids[i] = fmt.Sprintf("r%02d", i)
	}
	seed(t, s, b, ids...)

	var inFlight, peak atomic.Int32
	s.onGet = func(context.Context, string) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	}

	summary, err := c.RecalculateAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, summary.Succeeded)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRecalculateAllCancellation(t *testing.T) {
	t.Run("before start", func(t *testing.T) {
		s := newMemStore()
		c, b := newCoordinator(t, s, hermes.NopClient{}, Options{})
		seed(t, s, b, "a", "b")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		summary, err := c.RecalculateAll(ctx)
		require.NoError(t, err)
		assert.True(t, summary.Cancelled)
		assert.Equal(t, 2, summary.Skipped)
		assert.Equal(t, 0, summary.Attempted)
		for _, o := range summary.Outcomes {
			assert.Equal(t, StatusSkipped, o.Status)
			assert.Equal(t, "batch cancelled", o.Reason)
		}
		assert.Empty(t, s.results)
	})

	t.Run("in flight finishes", func(t *testing.T) {
		s := newMemStore()
		c, b := newCoordinator(t, s, hermes.NopClient{}, Options{Workers: 1})
		seed(t, s, b, "a", "b", "c")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		s.onGet = func(callCtx context.Context, id string) error {
			if id == "a" {
				cancel()
				// Work already launched keeps a live context.
				return callCtx.Err()
			}
			return nil
		}

		summary, err := c.RecalculateAll(ctx)
		require.NoError(t, err)
		assert.True(t, summary.Cancelled)
		assert.Equal(t, StatusSucceeded, summary.Outcomes[0].Status)
		assert.Equal(t, StatusSkipped, summary.Outcomes[1].Status)
		assert.Equal(t, StatusSkipped, summary.Outcomes[2].Status)
		assert.Equal(t, 1, summary.Attempted)
		assert.Equal(t, 2, summary.Skipped)
		assert.NotNil(t, s.results["a"])
	})
}

func TestCompatibility(t *testing.T) {
	s := newMemStore()
	h := &MockHermes{}
	h.On("Publish", mock.AnythingOfType("string"), mock.Anything).Return(nil)
	c, b := newCoordinator(t, s, h, Options{})
	seed(t, s, b, "alex", "sam", "solo")

	for _, id := range []string{"alex", "sam"} {
		_, err := c.RecalculateOne(context.Background(), id)
		require.NoError(t, err)
	}
	s.links["p1"] = &scoring.CoupleLink{PairingID: "p1", RespondentA: "alex", RespondentB: "sam", CompleteA: true, CompleteB: true}
	s.links["p2"] = &scoring.CoupleLink{PairingID: "p2", RespondentA: "alex", RespondentB: "solo", CompleteA: true}
	s.links["p3"] = &scoring.CoupleLink{PairingID: "p3", RespondentA: "alex", RespondentB: "solo", CompleteA: true, CompleteB: true}

	t.Run("complete", func(t *testing.T) {
		report, err := c.Compatibility(context.Background(), "p1")
		require.NoError(t, err)
		assert.Equal(t, "p1", report.PairingID)
		assert.Len(t, report.Sections, b.Weights.Len())
		assert.Empty(t, report.Incomparable)
		h.AssertCalled(t, "Publish", hermes.SubjectCoupleCompared("p1"), mock.AnythingOfType("hermes.CoupleComparedEvent"))
	})

	t.Run("unknown pairing", func(t *testing.T) {
		_, err := c.Compatibility(context.Background(), "nope")
		assert.ErrorIs(t, err, scoring.ErrNotFound)
	})

	t.Run("incomplete link", func(t *testing.T) {
		_, err := c.Compatibility(context.Background(), "p2")
		assert.ErrorIs(t, err, scoring.ErrCoupleIncomplete)
	})

	t.Run("missing result", func(t *testing.T) {
		_, err := c.Compatibility(context.Background(), "p3")
		assert.ErrorIs(t, err, scoring.ErrCoupleIncomplete)
	})
}

func TestHandleSubmissionCompleted(t *testing.T) {
	s := newMemStore()
	c, b := newCoordinator(t, s, hermes.NopClient{}, Options{})
	seed(t, s, b, "r1")

	c.HandleSubmissionCompleted(context.Background(), []byte(`{"respondent_id":"r1","attempt":1}`))
	assert.NotNil(t, s.results["r1"])

	c.HandleSubmissionCompleted(context.Background(), []byte(`not json`))
	c.HandleSubmissionCompleted(context.Background(), []byte(`{"respondent_id":"ghost"}`))
	assert.Len(t, s.results, 1)
}

func TestSubscribe(t *testing.T) {
	h := &MockHermes{}
	h.On("Subscribe", hermes.SubjectSubmissionCompleted, mock.Anything).Return(nil)
	c, _ := newCoordinator(t, newMemStore(), h, Options{})

	require.NoError(t, c.Subscribe(context.Background(), h))
	h.AssertExpectations(t)
}

func TestKeyLockHonoursContext(t *testing.T) {
	l := newKeyLock()
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	assert.Equal(t, 0, l.len())

	unlock, err = l.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock()
}
