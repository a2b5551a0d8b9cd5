// Package runner drives the per-account validation rounds and the outer
// sweep schedule: refresh, fetch, judge, fan-out submissions, aggregate,
// back off on failure.
package runner

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stork_verifier/judge"
	"stork_verifier/metrics"
	"stork_verifier/middleware"
	"stork_verifier/models"
	"stork_verifier/monitoring"
	"stork_verifier/utils"
)

const (
	// Account-level failure backoff: 5s doubling to an hour cap.
	initialAccountBackoff = 5 * time.Second
	maxAccountBackoff     = 3600 * time.Second

	// Fixed pause between accounts within a sweep.
	interAccountPause = 10 * time.Second

	// Pause after an unexpected sweep failure.
	sweepFailurePause = 60 * time.Second

	// The inter-sweep interval is randomized by ± this much.
	intervalJitter = 30 * time.Second
)

// TokenSource is one account's token lifecycle manager.
type TokenSource interface {
	GetValidToken(ctx context.Context) (string, error)
	Bundle() models.TokenBundle
}

// Oracle is the oracle-service client surface the runner needs.
type Oracle interface {
	FetchSignedPrices(ctx context.Context, token string) ([]models.PriceObservation, error)
	SubmitValidation(ctx context.Context, token, msgHash string, isValid bool, proxy string) error
	FetchUserStats(ctx context.Context, bundle models.TokenBundle) (models.UserStats, error)
	NextProxy() string
}

// History receives submitted verdicts; may be nil.
type History interface {
	InsertResults(ctx context.Context, account string, results []models.ValidationResult) error
}

type Runner struct {
	accounts []models.AccountCredential
	managers []TokenSource
	oracle   Oracle
	history  History
	state    *State
	log      *zap.SugaredLogger
	interval time.Duration
	now      func() time.Time
}

func New(accounts []models.AccountCredential, managers []TokenSource, oracle Oracle, history History, state *State, interval time.Duration, log *zap.SugaredLogger) *Runner {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Runner{
		accounts: accounts,
		managers: managers,
		oracle:   oracle,
		history:  history,
		state:    state,
		log:      log,
		interval: interval,
		now:      time.Now,
	}
}

// Run executes sweeps until the context is cancelled. Each account keeps
// its own failure backoff; a panic anywhere in a sweep is logged and the
// loop continues after a fixed pause.
func (r *Runner) Run(ctx context.Context) error {
	backoffs := make([]time.Duration, len(r.accounts))
	for i := range backoffs {
		backoffs[i] = initialAccountBackoff
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		sweepID := uuid.NewString()[:8]
		r.state.StartSweep()
		r.log.Infow("Starting sweep", "sweep", sweepID, "accounts", len(r.accounts))

		panicked := false
		middleware.Recover(func() {
			r.runSweep(ctx, sweepID, backoffs)
		}, func(recovered interface{}) {
			panicked = true
			monitoring.ErrorCounter.WithLabelValues("sweep_panic").Inc()
			r.state.SetStatus(fmt.Sprintf("sweep failed unexpectedly: %v", recovered))
		})
		if panicked {
			if err := wait(ctx, sweepFailurePause); err != nil {
				return err
			}
			continue
		}

		pause := r.interval + r.jitter()
		r.state.SetPhase(PhaseIdle)
		r.state.SetStatus(fmt.Sprintf("sweep done, next in %s", pause.Round(time.Second)))
		rounds, errored, _, uptime := metrics.GetStats()
		r.log.Infow("Sweep complete",
			"sweep", sweepID,
			"next_in", pause,
			"rounds_total", rounds,
			"errors_total", errored,
			"uptime", uptime.Round(time.Second))
		if err := wait(ctx, pause); err != nil {
			return err
		}
	}
}

func (r *Runner) runSweep(ctx context.Context, sweepID string, backoffs []time.Duration) {
	for i := range r.accounts {
		if ctx.Err() != nil {
			return
		}

		success := false
		middleware.Recover(func() {
			success = r.ProcessAccount(ctx, i)
		}, func(interface{}) {
			monitoring.ErrorCounter.WithLabelValues("account_panic").Inc()
		})

		if success {
			backoffs[i] = initialAccountBackoff
		} else {
			r.state.SetPhase(PhaseBackoffWait)
			r.log.Warnw("Round failed, backing off",
				"sweep", sweepID,
				"account", utils.MaskAccount(r.accounts[i].Username),
				"backoff", backoffs[i])
			if wait(ctx, backoffs[i]) != nil {
				return
			}
			backoffs[i] = NextBackoff(backoffs[i])
		}

		if i < len(r.accounts)-1 {
			if wait(ctx, interAccountPause) != nil {
				return
			}
		}
	}
}

// ProcessAccount runs one round: refresh -> stats -> fetch -> judge ->
// submit -> aggregate. Returns false when the round failed.
func (r *Runner) ProcessAccount(ctx context.Context, index int) bool {
	account := r.accounts[index]
	mgr := r.managers[index]
	masked := utils.MaskAccount(account.Username)
	start := r.now()

	r.state.SetAccount(index)
	r.state.SetPhase(PhaseRefreshingToken)
	r.log.Infow("Processing account", "account", masked, "position", index+1, "total", len(r.accounts))

	success := r.runRound(ctx, account.Username, mgr)
	metrics.RecordRound(success, r.now().Sub(start))
	r.state.SetPhase(PhaseIdle)
	return success
}

func (r *Runner) runRound(ctx context.Context, username string, mgr TokenSource) bool {
	masked := utils.MaskAccount(username)

	token, err := mgr.GetValidToken(ctx)
	if err != nil {
		r.log.Errorw("No usable token, round failed", "account", masked, "error", err)
		r.state.SetStatus("cannot obtain a valid token: " + err.Error())
		monitoring.RecordError(err)
		return false
	}

	// Best effort: the display survives a stats outage.
	stats, err := r.oracle.FetchUserStats(ctx, mgr.Bundle())
	if err != nil {
		r.log.Warnw("User stats fetch failed", "account", masked, "error", err)
	} else {
		if stats.Username == "" {
			stats.Username = username
		}
		r.state.SetStats(stats)
	}

	r.state.SetPhase(PhaseFetchingPrices)
	observations, err := r.oracle.FetchSignedPrices(ctx, token)
	if err != nil {
		r.log.Errorw("Price fetch failed, round failed", "account", masked, "error", err)
		r.state.SetStatus("price fetch failed: " + err.Error())
		monitoring.RecordError(err)
		return false
	}
	r.state.SetPrices(observations)

	if len(observations) == 0 {
		r.state.SetStatus("no prices to validate")
		return true
	}
	r.state.SetStatus(fmt.Sprintf("validating %d prices", len(observations)))

	r.state.SetPhase(PhaseValidating)
	results := r.submitAll(ctx, token, observations)

	r.state.SetPhase(PhaseSubmittingResults)
	var summary models.RoundSummary
	for _, res := range results {
		metrics.RecordResult(res.IsValid, res.Success)
		switch {
		case !res.Success:
			summary.Errored++
		case res.IsValid:
			summary.Valid++
		default:
			summary.Invalid++
		}
	}

	if r.history != nil {
		if err := r.history.InsertResults(ctx, username, results); err != nil {
			r.log.Warnw("Recording round history failed", "account", masked, "error", err)
		}
	}

	r.state.SetStatus(fmt.Sprintf("round done: valid %d, invalid %d, errors %d",
		summary.Valid, summary.Invalid, summary.Errored))
	r.log.Infow("Round complete",
		"account", masked,
		"valid", summary.Valid,
		"invalid", summary.Invalid,
		"errors", summary.Errored)
	return true
}

// submitAll fans out one submission task per observation and joins them
// all before returning. Tasks are isolated: a failure or panic in one
// never touches its siblings.
func (r *Runner) submitAll(ctx context.Context, token string, observations []models.PriceObservation) []models.ValidationResult {
	results := make([]models.ValidationResult, len(observations))
	var wg sync.WaitGroup

	for i, obs := range observations {
		wg.Add(1)
		go func(i int, obs models.PriceObservation) {
			defer wg.Done()
			results[i] = r.validateAndSubmit(ctx, token, obs)
		}(i, obs)
	}
	wg.Wait()
	return results
}

func (r *Runner) validateAndSubmit(ctx context.Context, token string, obs models.PriceObservation) (res models.ValidationResult) {
	res = models.ValidationResult{MsgHash: obs.MsgHash, Asset: obs.Asset, Price: obs.Price}
	defer func() {
		if recovered := recover(); recovered != nil {
			res.Success = false
			res.Err = fmt.Errorf("validation task panicked: %v", recovered)
			r.log.Errorw("Validation task panicked", "asset", obs.Asset, "error", recovered)
		}
	}()

	res.IsValid = judge.Fresh(r.now(), obs)

	if err := r.oracle.SubmitValidation(ctx, token, obs.MsgHash, res.IsValid, r.oracle.NextProxy()); err != nil {
		res.Err = err
		r.log.Warnw("Submission failed", "asset", obs.Asset, "error", err)
		return res
	}
	res.Success = true
	return res
}

// NextBackoff doubles an account's failure backoff up to the cap.
func NextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > maxAccountBackoff {
		next = maxAccountBackoff
	}
	return next
}

// jitter picks a whole second uniformly in [-30s, +30s].
func (r *Runner) jitter() time.Duration {
	seconds := int(intervalJitter / time.Second)
	return time.Duration(rand.Intn(2*seconds+1)-seconds) * time.Second
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
