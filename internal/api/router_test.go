package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Tally/internal/catalog"
	"github.com/MikeSquared-Agency/Tally/internal/recalc"
	"github.com/MikeSquared-Agency/Tally/internal/scoring"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Mocks
type mockStore struct {
	results map[string]*scoring.AssessmentResult
	err     error
}

func newMockStore() *mockStore {
	return &mockStore{results: make(map[string]*scoring.AssessmentResult)}
}
func (m *mockStore) ListRespondents(context.Context) ([]string, error) { return nil, nil }
func (m *mockStore) GetSubmission(context.Context, string) (*scoring.Submission, error) {
	return nil, nil
}
func (m *mockStore) SaveSubmission(context.Context, *scoring.Submission) error { return nil }
func (m *mockStore) GetResult(_ context.Context, id string) (*scoring.AssessmentResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.results[id], nil
}
func (m *mockStore) ReplaceResult(_ context.Context, r *scoring.AssessmentResult) error {
	m.results[r.RespondentID] = r
	return nil
}
func (m *mockStore) GetCoupleLink(context.Context, string) (*scoring.CoupleLink, error) {
	return nil, nil
}
func (m *mockStore) SaveCoupleLink(context.Context, *scoring.CoupleLink) error { return nil }
func (m *mockStore) Close() error                                              { return nil }

// MockRecalculator implements Recalculator for testing
type MockRecalculator struct {
	mock.Mock
}

func (m *MockRecalculator) RecalculateOne(ctx context.Context, id string) (*scoring.AssessmentResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scoring.AssessmentResult), args.Error(1)
}

func (m *MockRecalculator) RecalculateAll(ctx context.Context) (*recalc.BatchSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recalc.BatchSummary), args.Error(1)
}

func (m *MockRecalculator) Compatibility(ctx context.Context, pairingID string) (*scoring.CompatibilityReport, error) {
	args := m.Called(ctx, pairingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scoring.CompatibilityReport), args.Error(1)
}

type fixture struct {
	store   *mockStore
	recalc  *MockRecalculator
	handler http.Handler
}

func newFixture(t *testing.T, adminToken string) *fixture {
	t.Helper()
	b, err := catalog.Default()
	require.NoError(t, err)
	provider := catalog.NewStaticProvider(b, discardLogger())
	engine := scoring.NewEngine(provider, 0, discardLogger())

	f := &fixture{store: newMockStore(), recalc: &MockRecalculator{}}
	f.handler = NewRouter(f.store, engine, f.recalc, provider, RouterConfig{AdminToken: adminToken}, discardLogger())
	return f
}

func (f *fixture) do(method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func TestScoreEndpoint(t *testing.T) {
	f := newFixture(t, "")

	body := []byte(`{
		"respondent_id": "walk-in",
		"responses": {"q01": {"option": "I commit to this"}, "q02": {"index": 1}},
		"demographics": {"gender": "male"},
		"completed_at": "2024-05-01T12:00:00Z"
	}`)
	w := f.do("POST", "/api/v1/score", body, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res scoring.AssessmentResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "walk-in", res.RespondentID)
	assert.Equal(t, 87.5, res.Sections["Finances"].Percentage)
	assert.Equal(t, 87.5, res.Overall)
	assert.False(t, res.Complete)
	assert.Nil(t, res.WeightedShare)
	assert.Equal(t, "the-seeker", res.Profile.ID)
	require.NotNil(t, res.GenderProfile)
	assert.Equal(t, "the-provider", res.GenderProfile.ID)
	assert.Empty(t, f.store.results, "ad-hoc scoring must not persist")
}

func TestScoreEndpointValidation(t *testing.T) {
	f := newFixture(t, "")

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"respondent_id":`},
		{"missing respondent", `{"responses": {"q01": {"option": "x"}}}`},
		{"no responses", `{"respondent_id": "r1", "responses": {}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do("POST", "/api/v1/score", []byte(tt.body), nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestGetResult(t *testing.T) {
	f := newFixture(t, "")
	f.store.results["r1"] = &scoring.AssessmentResult{ID: uuid.New(), RespondentID: "r1", Overall: 64.2}

	w := f.do("GET", "/api/v1/results/r1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"overall_percentage":64.2`)

	w = f.do("GET", "/api/v1/results/ghost", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	f.store.err = errors.New("db down")
	w = f.do("GET", "/api/v1/results/r1", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRecalculateEndpoint(t *testing.T) {
	f := newFixture(t, "")
	f.recalc.On("RecalculateOne", mock.Anything, "r1").Return(&scoring.AssessmentResult{RespondentID: "r1", Overall: 70}, nil)
	f.recalc.On("RecalculateOne", mock.Anything, "ghost").Return(nil, fmt.Errorf("respondent ghost: %w", scoring.ErrNotFound))
	f.recalc.On("RecalculateOne", mock.Anything, "partial").Return(nil, &scoring.PartialDataError{RespondentID: "partial", Reason: "missing responses"})
	f.recalc.On("RecalculateOne", mock.Anything, "slow").Return(nil, fmt.Errorf("load submission slow: %w", context.DeadlineExceeded))

	tests := []struct {
		id   string
		want int
	}{
		{"r1", http.StatusOK},
		{"ghost", http.StatusNotFound},
		{"partial", http.StatusUnprocessableEntity},
		{"slow", http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			w := f.do("POST", "/api/v1/results/"+tt.id+"/recalculate", nil, nil)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
	f.recalc.AssertExpectations(t)
}

func TestCompatibilityEndpoint(t *testing.T) {
	f := newFixture(t, "")
	f.recalc.On("Compatibility", mock.Anything, "p1").Return(&scoring.CompatibilityReport{PairingID: "p1", Composite: 80}, nil)
	f.recalc.On("Compatibility", mock.Anything, "p2").Return(nil, fmt.Errorf("%w: pairing p2", scoring.ErrCoupleIncomplete))
	f.recalc.On("Compatibility", mock.Anything, "p3").Return(nil, fmt.Errorf("pairing p3: %w", scoring.ErrNotFound))

	w := f.do("GET", "/api/v1/couples/p1/compatibility", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"composite":80`)

	w = f.do("GET", "/api/v1/couples/p2/compatibility", nil, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do("GET", "/api/v1/couples/p3/compatibility", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminRecalculate(t *testing.T) {
	f := newFixture(t, "s3cret")
	summary := &recalc.BatchSummary{ID: uuid.New(), Attempted: 2, Succeeded: 1, Failed: 1}
	f.recalc.On("RecalculateAll", mock.Anything).Return(summary, nil).Once()

	w := f.do("POST", "/api/v1/admin/recalculate", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do("POST", "/api/v1/admin/recalculate", nil, map[string]string{"Authorization": "Bearer s3cret"})
	require.Equal(t, http.StatusOK, w.Code)

	var got recalc.BatchSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, summary.ID, got.ID)
	assert.Equal(t, 1, got.Failed)
	f.recalc.AssertExpectations(t)
}

func TestAdminRecalculateListFailure(t *testing.T) {
	f := newFixture(t, "")
	f.recalc.On("RecalculateAll", mock.Anything).Return(nil, errors.New("list respondents: connection refused"))

	w := f.do("POST", "/api/v1/admin/recalculate", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAdminCatalog(t *testing.T) {
	f := newFixture(t, "")

	w := f.do("GET", "/api/v1/admin/catalog", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view CatalogView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "2024.1", view.Version)
	assert.Len(t, view.Sections, 9)
	assert.Equal(t, 36, view.Questions)

	w = f.do("POST", "/api/v1/admin/catalog/reload", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsRouter(t *testing.T) {
	h := NewMetricsRouter()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", scoring.ErrNotFound), http.StatusNotFound},
		{&scoring.PartialDataError{Reason: "missing demographics"}, http.StatusUnprocessableEntity},
		{&catalog.ConfigurationError{Component: "catalog"}, http.StatusUnprocessableEntity},
		{scoring.ErrCoupleMismatch, http.StatusConflict},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.want, got)
		}
	}
}
