package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stork_verifier/models"
)

type fakeTokenSource struct {
	token  string
	err    error
	bundle models.TokenBundle
}

func (f *fakeTokenSource) GetValidToken(context.Context) (string, error) { return f.token, f.err }
func (f *fakeTokenSource) Bundle() models.TokenBundle                    { return f.bundle }

type fakeOracle struct {
	mu sync.Mutex

	observations []models.PriceObservation
	fetchErr     error
	stats        models.UserStats
	statsErr     error
	submitErr    error

	submitted []submission
	proxies   int
}

type submission struct {
	msgHash string
	isValid bool
}

func (f *fakeOracle) FetchSignedPrices(context.Context, string) ([]models.PriceObservation, error) {
	return f.observations, f.fetchErr
}

func (f *fakeOracle) SubmitValidation(_ context.Context, _, msgHash string, isValid bool, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, submission{msgHash, isValid})
	return f.submitErr
}

func (f *fakeOracle) FetchUserStats(context.Context, models.TokenBundle) (models.UserStats, error) {
	return f.stats, f.statsErr
}

func (f *fakeOracle) NextProxy() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.proxies++
	return ""
}

type fakeHistory struct {
	mu      sync.Mutex
	account string
	results []models.ValidationResult
	err     error
}

func (f *fakeHistory) InsertResults(_ context.Context, account string, results []models.ValidationResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.account = account
	f.results = results
	return f.err
}

func newTestRunner(oracle Oracle, history History, sources ...TokenSource) *Runner {
	accounts := make([]models.AccountCredential, len(sources))
	for i := range accounts {
		accounts[i] = models.AccountCredential{Username: "user@example.com"}
	}
	state := NewState(time.Minute, len(accounts))
	return New(accounts, sources, oracle, history, state, time.Minute, nil)
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, 10*time.Second, NextBackoff(5*time.Second))
	assert.Equal(t, 20*time.Second, NextBackoff(10*time.Second))
	assert.Equal(t, 3600*time.Second, NextBackoff(1800*time.Second))
	assert.Equal(t, 3600*time.Second, NextBackoff(3600*time.Second))
}

func TestJitterRange(t *testing.T) {
	r := newTestRunner(&fakeOracle{}, nil, &fakeTokenSource{})
	for i := 0; i < 1000; i++ {
		j := r.jitter()
		assert.GreaterOrEqual(t, j, -30*time.Second)
		assert.LessOrEqual(t, j, 30*time.Second)
		assert.Zero(t, j%time.Second)
	}
}

func TestProcessAccountHappyRound(t *testing.T) {
	now := time.Now()
	oracle := &fakeOracle{
		observations: []models.PriceObservation{
			{Asset: "BTCUSD", MsgHash: "0xaaa", Price: "65000.00000000", ObservedAt: now},
			{Asset: "ETHUSD", MsgHash: "0xbbb", Price: "3500.00000000", ObservedAt: now.Add(-10 * time.Minute)},
		},
		stats: models.UserStats{Username: "user@example.com", ValidCount: 5},
	}
	history := &fakeHistory{}
	r := newTestRunner(oracle, history, &fakeTokenSource{token: "tok"})

	ok := r.ProcessAccount(context.Background(), 0)
	assert.True(t, ok)

	// Both observations are submitted; the stale one as invalid.
	require.Len(t, oracle.submitted, 2)
	verdicts := map[string]bool{}
	for _, s := range oracle.submitted {
		verdicts[s.msgHash] = s.isValid
	}
	assert.True(t, verdicts["0xaaa"])
	assert.False(t, verdicts["0xbbb"])

	assert.Equal(t, "user@example.com", history.account)
	require.Len(t, history.results, 2)
	for _, res := range history.results {
		assert.True(t, res.Success)
		assert.NoError(t, res.Err)
	}

	view := r.state.Snapshot()
	assert.Equal(t, int64(5), view.Stats.ValidCount)
	assert.Contains(t, view.Status, "valid 1")
	assert.Contains(t, view.Status, "invalid 1")
}

func TestProcessAccountTokenFailure(t *testing.T) {
	oracle := &fakeOracle{}
	r := newTestRunner(oracle, nil, &fakeTokenSource{err: errors.New("no token")})

	ok := r.ProcessAccount(context.Background(), 0)
	assert.False(t, ok)
	assert.Empty(t, oracle.submitted)
}

func TestProcessAccountFetchFailure(t *testing.T) {
	oracle := &fakeOracle{fetchErr: errors.New("service down")}
	r := newTestRunner(oracle, nil, &fakeTokenSource{token: "tok"})

	ok := r.ProcessAccount(context.Background(), 0)
	assert.False(t, ok)
}

func TestProcessAccountEmptyFetchSucceeds(t *testing.T) {
	oracle := &fakeOracle{}
	r := newTestRunner(oracle, nil, &fakeTokenSource{token: "tok"})

	// Nothing to validate is a successful round, not a failure.
	ok := r.ProcessAccount(context.Background(), 0)
	assert.True(t, ok)
	assert.Empty(t, oracle.submitted)
}

func TestProcessAccountStatsFailureIsNotFatal(t *testing.T) {
	oracle := &fakeOracle{
		statsErr: errors.New("stats down"),
		observations: []models.PriceObservation{
			{Asset: "BTCUSD", MsgHash: "0xaaa", Price: "1", ObservedAt: time.Now()},
		},
	}
	r := newTestRunner(oracle, nil, &fakeTokenSource{token: "tok"})

	ok := r.ProcessAccount(context.Background(), 0)
	assert.True(t, ok)
	assert.Len(t, oracle.submitted, 1)
}

func TestProcessAccountSubmitErrorsCountAsErrored(t *testing.T) {
	oracle := &fakeOracle{
		submitErr: errors.New("throttled"),
		observations: []models.PriceObservation{
			{Asset: "BTCUSD", MsgHash: "0xaaa", Price: "1", ObservedAt: time.Now()},
		},
	}
	history := &fakeHistory{}
	r := newTestRunner(oracle, history, &fakeTokenSource{token: "tok"})

	// Submission errors are recorded per observation, the round itself
	// still completes.
	ok := r.ProcessAccount(context.Background(), 0)
	assert.True(t, ok)

	require.Len(t, history.results, 1)
	assert.False(t, history.results[0].Success)
	assert.Error(t, history.results[0].Err)

	view := r.state.Snapshot()
	assert.Contains(t, view.Status, "errors 1")
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newTestRunner(&fakeOracle{}, nil, &fakeTokenSource{token: "tok"})
	err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.NotEqual(t, PhaseValidating.String(), PhaseBackoffWait.String())
}
