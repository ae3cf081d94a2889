package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func timeInMonth(year, month int) time.Time {
	return time.Date(year, time.Month(month), 15, 12, 0, 0, 0, time.UTC)
}

// stubFetcher returns a canned result or error.
type stubFetcher struct {
	res *FetchResult
	err error

	mu    sync.Mutex
	calls int
}

func (f *stubFetcher) Fetch(ctx context.Context, url string, last Fingerprint) (*FetchResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.res, f.err
}

// stubExtractor returns a canned payload or error.
type stubExtractor struct {
	payload Payload
	err     error
	delay   time.Duration

	mu    sync.Mutex
	calls int
}

func (e *stubExtractor) Extract(ctx context.Context, content string) (Payload, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return e.payload, e.err
}

// memStore is an in-memory Store that enforces the commit-conflict contract
// the same way the durable store does.
type memStore struct {
	mu       sync.Mutex
	latest   map[uint]Fingerprint
	versions []NewVersion
	outcomes []recordedOutcome
	nextID   uint

	createErr error
	appendErr error
}

type recordedOutcome struct {
	targetID uint
	kind     OutcomeKind
	detail   string
}

func newMemStore() *memStore {
	return &memStore{latest: make(map[uint]Fingerprint)}
}

func (s *memStore) CreateVersion(ctx context.Context, v NewVersion) (uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createErr != nil {
		return 0, s.createErr
	}
	current := s.latest[v.TargetID]
	if current != v.PriorFingerprint || current == v.Fingerprint {
		return 0, ErrCommitConflict
	}

	s.nextID++
	s.latest[v.TargetID] = v.Fingerprint
	s.versions = append(s.versions, v)
	s.outcomes = append(s.outcomes, recordedOutcome{v.TargetID, OutcomeSuccess, ""})
	return s.nextID, nil
}

func (s *memStore) AppendOutcome(ctx context.Context, targetID uint, kind OutcomeKind, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.appendErr != nil {
		return s.appendErr
	}
	s.outcomes = append(s.outcomes, recordedOutcome{targetID, kind, detail})
	return nil
}

func testTarget() Target {
	return Target{ID: 7, BankID: 1, Name: "J Card", URL: "https://bank.example/j-card/rates"}
}

func changedResult(content string) *FetchResult {
	return &FetchResult{
		Status:      FetchChanged,
		Content:     content,
		Fingerprint: ComputeFingerprint([]byte(content)),
	}
}

// Scenario: no prior version, fetch changed, extraction succeeds.
func TestReconcile_FirstVersionCommitted(t *testing.T) {
	store := newMemStore()
	res := changedResult("# rewards\n3% overseas")
	payload := Payload{"cashback_overseas": "3%"}

	p := New(
		&stubFetcher{res: res},
		&stubExtractor{payload: payload},
		store,
		zap.NewNop(),
	)

	outcome, err := p.Reconcile(context.Background(), testTarget(), "")
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuccess, outcome.Kind)
	assert.Equal(t, res.Fingerprint, outcome.Fingerprint)
	assert.NotZero(t, outcome.VersionID)

	require.Len(t, store.versions, 1)
	assert.Equal(t, res.Fingerprint, store.versions[0].Fingerprint)
	assert.Equal(t, payload, store.versions[0].Payload)
	assert.Equal(t, res.Content, store.versions[0].RawContent)

	// Exactly one audit record, kind SUCCESS.
	require.Len(t, store.outcomes, 1)
	assert.Equal(t, OutcomeSuccess, store.outcomes[0].kind)
}

// Scenario: fetch reports unchanged content.
func TestReconcile_NoChange(t *testing.T) {
	store := newMemStore()
	last := ComputeFingerprint([]byte("stable content"))
	store.latest[7] = last

	extractor := &stubExtractor{payload: Payload{}}
	p := New(
		&stubFetcher{res: &FetchResult{Status: FetchUnchanged}},
		extractor,
		store,
		zap.NewNop(),
	)

	outcome, err := p.Reconcile(context.Background(), testTarget(), last)
	require.NoError(t, err)

	assert.Equal(t, OutcomeNoChange, outcome.Kind)
	assert.Empty(t, store.versions)
	assert.Zero(t, extractor.calls)
	require.Len(t, store.outcomes, 1)
	assert.Equal(t, OutcomeNoChange, store.outcomes[0].kind)
}

// Scenario: fetch fails with a timeout detail.
func TestReconcile_FetchFailed(t *testing.T) {
	store := newMemStore()
	p := New(
		&stubFetcher{err: &FetchError{Detail: "http get: context deadline exceeded", Timeout: true}},
		&stubExtractor{},
		store,
		zap.NewNop(),
	)

	outcome, err := p.Reconcile(context.Background(), testTarget(), "")
	require.NoError(t, err)

	assert.Equal(t, OutcomeFailed, outcome.Kind)
	assert.Contains(t, outcome.Detail, "timeout")
	assert.Empty(t, store.versions)
	require.Len(t, store.outcomes, 1)
	assert.Equal(t, OutcomeFailed, store.outcomes[0].kind)
}

// Scenario: content changed but extraction fails; content is discarded.
func TestReconcile_ExtractionFailed(t *testing.T) {
	store := newMemStore()
	p := New(
		&stubFetcher{res: changedResult("changed body")},
		&stubExtractor{err: &ExtractionError{Detail: "malformed response"}},
		store,
		zap.NewNop(),
	)

	outcome, err := p.Reconcile(context.Background(), testTarget(), "")
	require.NoError(t, err)

	assert.Equal(t, OutcomeAIFailed, outcome.Kind)
	assert.Equal(t, "malformed response", outcome.Detail)
	assert.Empty(t, store.versions, "unparsed content must not be persisted")
	require.Len(t, store.outcomes, 1)
	assert.Equal(t, OutcomeAIFailed, store.outcomes[0].kind)
	assert.Equal(t, "malformed response", store.outcomes[0].detail)
}

// Idempotence: a second run over identical content yields NO_CHANGE,
// never a second SUCCESS.
func TestReconcile_Idempotent(t *testing.T) {
	store := newMemStore()
	content := "# rewards\n5% dining"
	res := changedResult(content)

	p := New(
		&stubFetcher{res: res},
		&stubExtractor{payload: Payload{"dining": "5%"}},
		store,
		zap.NewNop(),
	)

	first, err := p.Reconcile(context.Background(), testTarget(), "")
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, first.Kind)

	// Second invocation observes the fingerprint committed by the first.
	second, err := p.Reconcile(context.Background(), testTarget(), first.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoChange, second.Kind)

	assert.Len(t, store.versions, 1)
	assert.Len(t, store.outcomes, 2)
}

// Scenario: two concurrent runs observe the same stale fingerprint; exactly
// one commit wins, the loser records a non-SUCCESS outcome and surfaces a
// retryable conflict.
func TestReconcile_ConcurrentRunsSameTarget(t *testing.T) {
	store := newMemStore()
	res := changedResult("raced content")

	p := New(
		&stubFetcher{res: res},
		&stubExtractor{payload: Payload{"k": "v"}},
		store,
		zap.NewNop(),
	)

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 2)
	errs := make([]error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Both runs start from the same stale (absent) fingerprint.
			outcomes[i], errs[i] = p.Reconcile(context.Background(), testTarget(), "")
		}(i)
	}
	wg.Wait()

	successes := 0
	conflicts := 0
	for i := 0; i < 2; i++ {
		if outcomes[i].Kind == OutcomeSuccess {
			successes++
			assert.NoError(t, errs[i])
		} else {
			conflicts++
			assert.Equal(t, OutcomeFailed, outcomes[i].Kind)
			assert.ErrorIs(t, errs[i], ErrCommitConflict)
		}
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)
	assert.Len(t, store.versions, 1)
	assert.Len(t, store.outcomes, 2) // one SUCCESS, one FAILED
}

// A commit conflict reported by the store aborts without a version and is
// surfaced to the caller.
func TestReconcile_StoreConflict(t *testing.T) {
	store := newMemStore()
	// Simulate another process having committed: latest differs from what
	// this run observed.
	store.latest[7] = ComputeFingerprint([]byte("someone else's version"))

	p := New(
		&stubFetcher{res: changedResult("our content")},
		&stubExtractor{payload: Payload{}},
		store,
		zap.NewNop(),
	)

	outcome, err := p.Reconcile(context.Background(), testTarget(), "")
	assert.ErrorIs(t, err, ErrCommitConflict)
	assert.Equal(t, OutcomeFailed, outcome.Kind)
	assert.Contains(t, outcome.Detail, "commit conflict")
	assert.Empty(t, store.versions)
}

// A non-conflict store failure records FAILED and propagates the error.
func TestReconcile_CommitError(t *testing.T) {
	store := newMemStore()
	store.createErr = fmt.Errorf("mysql has gone away")

	p := New(
		&stubFetcher{res: changedResult("content")},
		&stubExtractor{payload: Payload{}},
		store,
		zap.NewNop(),
	)

	outcome, err := p.Reconcile(context.Background(), testTarget(), "")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCommitConflict)
	assert.Equal(t, OutcomeFailed, outcome.Kind)
	assert.Contains(t, outcome.Detail, "commit failed")
}

// Cancellation between fetch and commit still leaves an audit record.
func TestReconcile_CancelledBetweenStages(t *testing.T) {
	store := newMemStore()
	ctx, cancel := context.WithCancel(context.Background())

	extractor := &stubExtractor{payload: Payload{}, delay: 50 * time.Millisecond}
	p := New(
		&stubFetcher{res: changedResult("content")},
		extractor,
		store,
		zap.NewNop(),
	)

	// Cancel while extraction is in flight.
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	outcome, err := p.Reconcile(ctx, testTarget(), "")
	require.NoError(t, err)

	assert.Equal(t, OutcomeFailed, outcome.Kind)
	assert.Contains(t, outcome.Detail, "cancel")
	assert.Empty(t, store.versions)
	require.Len(t, store.outcomes, 1, "a cancelled run must still record an outcome")
	assert.Equal(t, OutcomeFailed, store.outcomes[0].kind)
}

// An invalid target aborts before any run starts: no fetch, no outcome.
func TestReconcile_InvalidTarget(t *testing.T) {
	store := newMemStore()
	fetcher := &stubFetcher{res: changedResult("content")}

	p := New(fetcher, &stubExtractor{}, store, zap.NewNop())

	_, err := p.Reconcile(context.Background(), Target{ID: 3}, "")
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
	assert.Zero(t, fetcher.calls)
	assert.Empty(t, store.outcomes)

	_, err = p.Reconcile(context.Background(), Target{URL: "https://x"}, "")
	assert.ErrorAs(t, err, &cfgErr)
}

// A failing audit write is surfaced so the caller knows the run's record
// is missing.
func TestReconcile_AppendOutcomeError(t *testing.T) {
	store := newMemStore()
	store.appendErr = errors.New("insert failed")

	p := New(
		&stubFetcher{res: &FetchResult{Status: FetchUnchanged}},
		&stubExtractor{},
		store,
		zap.NewNop(),
	)

	last := ComputeFingerprint([]byte("x"))
	outcome, err := p.Reconcile(context.Background(), testTarget(), last)
	assert.Error(t, err)
	assert.Equal(t, OutcomeNoChange, outcome.Kind)
}

// Outcome count equals run count across a mixed series of runs.
func TestReconcile_OneOutcomePerRun(t *testing.T) {
	store := newMemStore()
	fetcher := &stubFetcher{res: changedResult("v1")}
	extractor := &stubExtractor{payload: Payload{}}

	p := New(fetcher, extractor, store, zap.NewNop())
	ctx := context.Background()
	target := testTarget()

	last := Fingerprint("")
	runs := 0

	// SUCCESS
	out, err := p.Reconcile(ctx, target, last)
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, out.Kind)
	last = out.Fingerprint
	runs++

	// NO_CHANGE (same content again)
	out, err = p.Reconcile(ctx, target, last)
	require.NoError(t, err)
	require.Equal(t, OutcomeNoChange, out.Kind)
	runs++

	// FAILED
	fetcher.res = nil
	fetcher.err = &FetchError{Detail: "http 503"}
	out, err = p.Reconcile(ctx, target, last)
	require.NoError(t, err)
	require.Equal(t, OutcomeFailed, out.Kind)
	runs++

	// AI_FAILED
	fetcher.err = nil
	fetcher.res = changedResult("v2")
	extractor.err = &ExtractionError{Detail: "not json"}
	out, err = p.Reconcile(ctx, target, last)
	require.NoError(t, err)
	require.Equal(t, OutcomeAIFailed, out.Kind)
	runs++

	assert.Len(t, store.outcomes, runs)
	assert.Len(t, store.versions, 1)
}
