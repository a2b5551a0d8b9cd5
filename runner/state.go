package runner

import (
	"sync"
	"time"

	"stork_verifier/models"
)

// Phase is where an account's round currently is.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRefreshingToken
	PhaseFetchingPrices
	PhaseValidating
	PhaseSubmittingResults
	PhaseBackoffWait
)

func (p Phase) String() string {
	switch p {
	case PhaseRefreshingToken:
		return "refreshing token"
	case PhaseFetchingPrices:
		return "fetching prices"
	case PhaseValidating:
		return "validating"
	case PhaseSubmittingResults:
		return "submitting results"
	case PhaseBackoffWait:
		return "backoff wait"
	default:
		return "idle"
	}
}

// State is the rolling view shared between the orchestrator (writer) and
// the display ticker (reader). All access goes through the lock; the
// display goroutine runs on the same process and reads once a second.
type State struct {
	mu sync.Mutex

	stats         models.UserStats
	status        string
	phase         Phase
	prices        map[string]models.PriceObservation
	accountIndex  int
	totalAccounts int
	sweepStart    time.Time
	interval      time.Duration
}

func NewState(interval time.Duration, totalAccounts int) *State {
	return &State{
		interval:      interval,
		totalAccounts: totalAccounts,
		sweepStart:    time.Now(),
		prices:        make(map[string]models.PriceObservation),
	}
}

func (s *State) SetStats(stats models.UserStats) {
	s.mu.Lock()
	s.stats = stats
	s.mu.Unlock()
}

func (s *State) SetStatus(status string) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func (s *State) SetPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
}

func (s *State) SetAccount(index int) {
	s.mu.Lock()
	s.accountIndex = index
	s.mu.Unlock()
}

func (s *State) SetPrices(observations []models.PriceObservation) {
	s.mu.Lock()
	s.prices = make(map[string]models.PriceObservation, len(observations))
	for _, o := range observations {
		s.prices[o.Asset] = o
	}
	s.mu.Unlock()
}

func (s *State) StartSweep() {
	s.mu.Lock()
	s.sweepStart = time.Now()
	s.mu.Unlock()
}

// View is one consistent read of the shared state.
type View struct {
	Stats         models.UserStats
	Status        string
	Phase         Phase
	PriceOfBTC    string
	AccountIndex  int
	TotalAccounts int
	Interval      time.Duration
	Elapsed       time.Duration
}

func (s *State) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		Stats:         s.stats,
		Status:        s.status,
		Phase:         s.phase,
		AccountIndex:  s.accountIndex,
		TotalAccounts: s.totalAccounts,
		Interval:      s.interval,
		Elapsed:       time.Since(s.sweepStart),
	}
	if btc, ok := s.prices["BTCUSD"]; ok {
		v.PriceOfBTC = btc.Price
	}
	return v
}
