package facing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/facing-direction-service/internal/cache"
	"github.com/couchcryptid/facing-direction-service/internal/domain"
	"github.com/couchcryptid/facing-direction-service/internal/geo"
	"github.com/couchcryptid/facing-direction-service/internal/observability"
	"github.com/couchcryptid/facing-direction-service/internal/resolver"
	"github.com/couchcryptid/facing-direction-service/internal/strategy"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type countingGeocoder struct {
	mu    sync.Mutex
	calls int
	cands []domain.GeocodeCandidate
}

func (g *countingGeocoder) Search(_ context.Context, _ string, _ int) ([]domain.GeocodeCandidate, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.cands, nil
}

type fakeSource struct {
	mu       sync.Mutex
	calls    int
	features map[domain.FeatureKind][]domain.Feature
	errs     map[domain.FeatureKind]error
}

func (f *fakeSource) Features(_ context.Context, q domain.FeatureQuery) ([]domain.Feature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.errs[q.Kind]; err != nil {
		return nil, err
	}
	return f.features[q.Kind], nil
}

type fakeResolver struct {
	match resolver.Match
	err   error
}

func (r fakeResolver) Resolve(context.Context, string) (resolver.Match, error) {
	return r.match, r.err
}

type fakeStrategy struct {
	name domain.StrategyName
	fn   func(ctx context.Context) (domain.DirectionResult, error)
}

func (s fakeStrategy) Name() domain.StrategyName { return s.name }

func (s fakeStrategy) Infer(ctx context.Context, _ domain.GeoPoint) (domain.DirectionResult, error) {
	return s.fn(ctx)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.FacingEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.FacingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) snapshot() []domain.FacingEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.FacingEvent(nil), p.events...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var target = domain.GeoPoint{Lat: 40, Lon: -75}

func houseCandidate() []domain.GeocodeCandidate {
	return []domain.GeocodeCandidate{{
		Point:          target,
		Label:          "1 Main St, Town",
		Importance:     0.2,
		HasHouseNumber: true,
		HouseNumber:    "1",
		PlaceType:      "house",
	}}
}

func northRoad() domain.Feature {
	return domain.Feature{ID: 2, Kind: domain.FeatureHighway, Points: []domain.GeoPoint{
		{Lat: 40.0005, Lon: -75.001},
		{Lat: 40.0005, Lon: -74.999},
	}}
}

func squareBuilding() domain.Feature {
	return domain.Feature{ID: 1, Kind: domain.FeatureBuilding, Points: []domain.GeoPoint{
		{Lat: 40.0001, Lon: -75.0001},
		{Lat: 40.0001, Lon: -74.9999},
		{Lat: 39.9999, Lon: -74.9999},
		{Lat: 39.9999, Lon: -75.0001},
		{Lat: 40.0001, Lon: -75.0001},
	}}
}

func newTestService(g domain.Geocoder, src domain.FeatureSource, c ResultCache, opts ...Option) *Service {
	logger := discardLogger()
	strategies := []strategy.Strategy{
		strategy.NewBuilding(src, geo.DefaultOffsets(), logger),
		strategy.NewStreet(src, geo.DefaultOffsets(), logger),
	}
	return NewService(resolver.New(g, resolver.DefaultCountrySuffix, logger), strategies, c,
		observability.NewMetricsForTesting(), logger, opts...)
}

func fixedResolver() fakeResolver {
	return fakeResolver{match: resolver.Match{Point: target, Label: "1 Main St"}}
}

func returns(d domain.Direction, bearing int) func(context.Context) (domain.DirectionResult, error) {
	return func(context.Context) (domain.DirectionResult, error) {
		return domain.DirectionResult{Direction: d, Bearing: bearing}, nil
	}
}

func fails(err error) func(context.Context) (domain.DirectionResult, error) {
	return func(context.Context) (domain.DirectionResult, error) {
		return domain.DirectionResult{}, err
	}
}

// --- tests ---

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"1 Main St", "1 main st"},
		{"  1  MAIN\tSt \n", "1 main st"},
		{"1 main st", "1 main st"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeAddress(tt.in), "input %q", tt.in)
	}
}

func TestInfer_BuildingStrategy(t *testing.T) {
	g := &countingGeocoder{cands: houseCandidate()}
	src := &fakeSource{features: map[domain.FeatureKind][]domain.Feature{
		domain.FeatureBuilding: {squareBuilding()},
		domain.FeatureHighway:  {northRoad()},
	}}
	svc := newTestService(g, src, cache.NewMemory(10, time.Hour, nil))

	res, err := svc.Infer(context.Background(), "1 Main St")
	require.NoError(t, err)

	assert.Equal(t, domain.DirectionResult{Direction: domain.North, Bearing: 0}, res.Direction)
	assert.Equal(t, domain.StrategyBuilding, res.Strategy)
	assert.Equal(t, "1 Main St, Town", res.Label)
	assert.Equal(t, target, res.Point)
	assert.False(t, res.Cached)
	assert.NotEmpty(t, res.AttemptID)
	assert.Equal(t, 1, g.calls)
}

func TestInfer_FallsBackToStreet(t *testing.T) {
	g := &countingGeocoder{cands: houseCandidate()}
	src := &fakeSource{features: map[domain.FeatureKind][]domain.Feature{
		domain.FeatureHighway: {northRoad()},
	}}
	svc := newTestService(g, src, cache.NewMemory(10, time.Hour, nil))

	res, err := svc.Infer(context.Background(), "1 Main St")
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyStreet, res.Strategy)
	assert.Equal(t, domain.DirectionResult{Direction: domain.North, Bearing: 0}, res.Direction)
}

func TestInfer_CacheIsIdempotentAcrossCaseAndWhitespace(t *testing.T) {
	g := &countingGeocoder{cands: houseCandidate()}
	src := &fakeSource{features: map[domain.FeatureKind][]domain.Feature{
		domain.FeatureHighway: {northRoad()},
	}}
	svc := newTestService(g, src, cache.NewMemory(10, time.Hour, nil))

	first, err := svc.Infer(context.Background(), "1 Main St")
	require.NoError(t, err)
	sourceCalls := src.calls

	second, err := svc.Infer(context.Background(), "  1  MAIN st ")
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.Equal(t, first.Direction, second.Direction)
	assert.Equal(t, first.Strategy, second.Strategy)
	assert.Equal(t, first.Label, second.Label)
	assert.Equal(t, 1, g.calls, "cache hit must not geocode again")
	assert.Equal(t, sourceCalls, src.calls, "cache hit must not query features again")
}

func TestInfer_BothSpatialQueriesFail(t *testing.T) {
	g := &countingGeocoder{cands: houseCandidate()}
	src := &fakeSource{errs: map[domain.FeatureKind]error{
		domain.FeatureBuilding: &domain.SpatialQueryError{StatusCode: 504},
		domain.FeatureHighway:  &domain.SpatialQueryError{StatusCode: 504},
	}}
	mem := cache.NewMemory(10, time.Hour, nil)
	svc := newTestService(g, src, mem)

	_, err := svc.Infer(context.Background(), "1 Main St")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDirectionIndeterminate)
	assert.ErrorIs(t, err, domain.ErrNoStreetData)
	assert.Equal(t, 0, mem.Len(), "failures are not cached")
}

func TestInfer_EmptyAddress(t *testing.T) {
	g := &countingGeocoder{}
	svc := newTestService(g, &fakeSource{}, cache.NewMemory(10, time.Hour, nil))

	for _, addr := range []string{"", "   ", "\t\n"} {
		_, err := svc.Infer(context.Background(), addr)
		assert.ErrorIs(t, err, domain.ErrEmptyAddress)
	}
	assert.Equal(t, 0, g.calls)
}

func TestInfer_AddressNotFound(t *testing.T) {
	g := &countingGeocoder{}
	src := &fakeSource{}
	svc := newTestService(g, src, cache.NewMemory(10, time.Hour, nil))

	_, err := svc.Infer(context.Background(), "nowhere")
	assert.ErrorIs(t, err, domain.ErrAddressNotFound)
	assert.Equal(t, 2, g.calls, "both variants are tried")
	assert.Equal(t, 0, src.calls)
}

func TestInfer_StrategyTimeoutAdvancesToNext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	slow := fakeStrategy{name: domain.StrategyBuilding, fn: func(context.Context) (domain.DirectionResult, error) {
		<-release // ignores its context
		return domain.DirectionResult{Direction: domain.South, Bearing: 180}, nil
	}}
	fast := fakeStrategy{name: domain.StrategyStreet, fn: returns(domain.West, 270)}

	metrics := observability.NewMetricsForTesting()
	svc := NewService(fixedResolver(), []strategy.Strategy{slow, fast}, cache.NewMemory(10, time.Hour, nil),
		metrics, discardLogger(), WithStrategyTimeout(20*time.Millisecond))

	start := time.Now()
	res, err := svc.Infer(context.Background(), "1 Main St")
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, domain.StrategyStreet, res.Strategy)
	assert.Equal(t, domain.West, res.Direction.Direction)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StrategyRuns.WithLabelValues("building", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StrategyRuns.WithLabelValues("street", "success")))
}

func TestInfer_CancellationLeavesCacheUntouched(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cancelling := fakeStrategy{name: domain.StrategyBuilding, fn: func(context.Context) (domain.DirectionResult, error) {
		cancel()
		return domain.DirectionResult{Direction: domain.North}, nil
	}}
	mem := cache.NewMemory(10, time.Hour, nil)
	pub := &recordingPublisher{}
	svc := NewService(fixedResolver(), []strategy.Strategy{cancelling}, mem,
		observability.NewMetricsForTesting(), discardLogger(), WithPublisher(pub))

	_, err := svc.Infer(ctx, "1 Main St")
	assert.ErrorIs(t, err, domain.ErrCancelled)
	assert.Equal(t, 0, mem.Len())
	assert.Empty(t, pub.snapshot(), "cancelled searches publish nothing")
}

func TestStore_SkipsCancelledSearch(t *testing.T) {
	mem := cache.NewMemory(10, time.Hour, nil)
	svc := NewService(fixedResolver(), nil, mem, observability.NewMetricsForTesting(), discardLogger())
	result := Result{
		Label:     "1 Main St",
		Direction: domain.DirectionResult{Direction: domain.North},
		Strategy:  domain.StrategyBuilding,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, svc.store(ctx, "1 main st", result))
	assert.Equal(t, 0, mem.Len())

	assert.True(t, svc.store(context.Background(), "1 main st", result))
	assert.Equal(t, 1, mem.Len())
}

func TestInfer_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := &countingGeocoder{cands: houseCandidate()}
	svc := newTestService(g, &fakeSource{}, cache.NewMemory(10, time.Hour, nil))

	_, err := svc.Infer(ctx, "1 Main St")
	assert.ErrorIs(t, err, domain.ErrCancelled)
	assert.Equal(t, 0, g.calls)
}

func TestInfer_NoStrategies(t *testing.T) {
	svc := NewService(fixedResolver(), nil, cache.NewMemory(10, time.Hour, nil),
		observability.NewMetricsForTesting(), discardLogger())

	_, err := svc.Infer(context.Background(), "1 Main St")
	assert.ErrorIs(t, err, domain.ErrDirectionIndeterminate)
}

func TestInfer_PublishesEvents(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewService(fixedResolver(),
		[]strategy.Strategy{fakeStrategy{name: domain.StrategyStreet, fn: returns(domain.East, 91)}},
		cache.NewMemory(10, time.Hour, nil), observability.NewMetricsForTesting(), discardLogger(),
		WithPublisher(pub))

	res, err := svc.InferRequest(context.Background(), "req-1", "1 Main St")
	require.NoError(t, err)
	assert.Equal(t, "req-1", res.AttemptID)

	_, err = svc.Infer(context.Background(), "")
	require.Error(t, err)

	events := pub.snapshot()
	require.Len(t, events, 2)

	assert.Equal(t, "req-1", events[0].RequestID)
	assert.Equal(t, domain.StatusResolved, events[0].Status)
	assert.Equal(t, domain.East, events[0].Direction)
	assert.Equal(t, 91, events[0].Bearing)
	assert.Equal(t, domain.StrategyStreet, events[0].Strategy)
	assert.Equal(t, target.Lat, events[0].Lat)
	assert.Empty(t, events[0].Error)

	assert.Equal(t, domain.StatusInvalid, events[1].Status)
	assert.NotEmpty(t, events[1].RequestID)
	assert.Contains(t, events[1].Error, "empty")
}

func TestInfer_PublishFailureDoesNotFailSearch(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	metrics := observability.NewMetricsForTesting()
	svc := NewService(fixedResolver(),
		[]strategy.Strategy{fakeStrategy{name: domain.StrategyStreet, fn: returns(domain.East, 90)}},
		cache.NewMemory(10, time.Hour, nil), metrics, discardLogger(), WithPublisher(pub))

	_, err := svc.Infer(context.Background(), "1 Main St")
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PublishErrors))
}

func TestRunWithDeadline(t *testing.T) {
	t.Run("returns the function result", func(t *testing.T) {
		v, err := runWithDeadline(context.Background(), time.Second, func(context.Context) (int, error) {
			return 7, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 7, v)
	})

	t.Run("does not wait for a function that ignores its context", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)

		_, err := runWithDeadline(context.Background(), 10*time.Millisecond, func(context.Context) (int, error) {
			<-release
			return 1, nil
		})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("passes function errors through", func(t *testing.T) {
		_, err := runWithDeadline(context.Background(), time.Second, fails(domain.ErrNoStreetData))
		assert.ErrorIs(t, err, domain.ErrNoStreetData)
	})
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, domain.StatusResolved, Outcome(nil))
	assert.Equal(t, domain.StatusInvalid, Outcome(domain.ErrEmptyAddress))
	assert.Equal(t, domain.StatusNotFound, Outcome(errors.Join(errors.New("x"), domain.ErrAddressNotFound)))
	assert.Equal(t, domain.StatusIndeterminate, Outcome(domain.ErrDirectionIndeterminate))
	assert.Equal(t, "cancelled", Outcome(domain.ErrCancelled))
	assert.Equal(t, domain.StatusFailed, Outcome(errors.New("boom")))
}
