// Package statistics keeps per-player results across hands, measured in big
// blinds so rooms with different stakes compare fairly.
package statistics

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/lox/triviaholdem/internal/game"
	"github.com/lox/triviaholdem/internal/room"
)

// HandResult is one player's outcome in a single hand
type HandResult struct {
	NetChips       int
	NetBB          float64
	Position       int  // finishing position, 0 when folded
	Folded         bool // player folded before the end
	WentToShowdown bool
	Aborted        bool
	FinalPotSize   int
}

// Statistics tracks one player's results
type Statistics struct {
	Hands    int
	NetChips int
	SumBB    float64
	SumBB2   float64   // Sum of squares for variance calculation
	Values   []float64 // Store all values for median/percentile calculation

	Wins            int // hands finished in first place with winnings
	ShowdownWins    int
	NonShowdownWins int
	Folds           int
	Aborted         int

	MaxPotChips int // largest pot won
}

// Add incorporates a new hand result into the statistics
func (s *Statistics) Add(result HandResult) {
	s.Hands++
	s.NetChips += result.NetChips
	s.SumBB += result.NetBB
	s.SumBB2 += result.NetBB * result.NetBB
	s.Values = append(s.Values, result.NetBB)

	switch {
	case result.Aborted:
		s.Aborted++
	case result.Folded:
		s.Folds++
	case result.Position == 1 && result.NetChips > 0:
		s.Wins++
		if result.WentToShowdown {
			s.ShowdownWins++
		} else {
			s.NonShowdownWins++
		}
		if result.FinalPotSize > s.MaxPotChips {
			s.MaxPotChips = result.FinalPotSize
		}
	}
}

// Mean returns the arithmetic mean of all results in big blinds per hand
func (s *Statistics) Mean() float64 {
	if s.Hands == 0 {
		return 0
	}
	return s.SumBB / float64(s.Hands)
}

// Variance returns the sample variance of all results
func (s *Statistics) Variance() float64 {
	if s.Hands < 2 {
		return 0
	}
	mean := s.Mean()
	return (s.SumBB2 - float64(s.Hands)*mean*mean) / float64(s.Hands-1)
}

// StdDev returns the sample standard deviation of all results
func (s *Statistics) StdDev() float64 {
	return math.Sqrt(math.Max(s.Variance(), 0))
}

// StdError returns the standard error of the mean
func (s *Statistics) StdError() float64 {
	if s.Hands == 0 {
		return 0
	}
	return s.StdDev() / math.Sqrt(float64(s.Hands))
}

// ConfidenceInterval95 returns the 95% confidence interval for the mean
func (s *Statistics) ConfidenceInterval95() (float64, float64) {
	mean := s.Mean()
	margin := 1.96 * s.StdError()
	return mean - margin, mean + margin
}

// Median returns the median value of all results
func (s *Statistics) Median() float64 {
	return s.Percentile(0.5)
}

// Percentile returns the value at the given percentile (0.0 to 1.0)
func (s *Statistics) Percentile(p float64) float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := make([]float64, len(s.Values))
	copy(sorted, s.Values)
	sort.Float64s(sorted)

	index := p * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// Validate checks that the counters agree with each other
func (s *Statistics) Validate() error {
	if len(s.Values) != s.Hands {
		return fmt.Errorf("values array length (%d) does not match hands count (%d)", len(s.Values), s.Hands)
	}
	if s.ShowdownWins+s.NonShowdownWins != s.Wins {
		return fmt.Errorf("showdown (%d) and non-showdown (%d) wins do not add up to %d", s.ShowdownWins, s.NonShowdownWins, s.Wins)
	}
	if s.Wins+s.Folds+s.Aborted > s.Hands {
		return fmt.Errorf("wins, folds and aborts (%d) exceed hands (%d)", s.Wins+s.Folds+s.Aborted, s.Hands)
	}
	return nil
}

// Summary is one leaderboard row
type Summary struct {
	UserID    string  `json:"userId"`
	Hands     int     `json:"hands"`
	Wins      int     `json:"wins"`
	Folds     int     `json:"folds"`
	NetChips  int     `json:"netChips"`
	BBPerHand float64 `json:"bbPerHand"`
	StdDev    float64 `json:"stdDev"`
}

// Tracker aggregates game_ended events per player. It is a room.Publisher.
type Tracker struct {
	mu      sync.RWMutex
	players map[string]*Statistics
	games   map[string]bool
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{
		players: make(map[string]*Statistics),
		games:   make(map[string]bool),
	}
}

var _ room.Publisher = (*Tracker)(nil)

// Publish records game_ended events and ignores everything else
func (t *Tracker) Publish(_ []string, ev room.Event) {
	if ev.Type != room.EventTypeGameEnded {
		return
	}
	ended, ok := ev.Data.(room.GameEnded)
	if !ok {
		return
	}
	t.Record(ended.Result, ended.BigBlind)
}

// Record adds every standing of res. A game is only counted once.
func (t *Tracker) Record(res game.Result, bigBlind int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if res.GameID != "" {
		if t.games[res.GameID] {
			return
		}
		t.games[res.GameID] = true
	}
	for _, st := range res.Standings {
		s, ok := t.players[st.UserID]
		if !ok {
			s = &Statistics{}
			t.players[st.UserID] = s
		}
		hr := HandResult{
			NetChips:       st.ChipDelta,
			Position:       st.Position,
			Folded:         st.Folded,
			WentToShowdown: !res.FoldOut && !res.Aborted,
			Aborted:        res.Aborted,
			FinalPotSize:   res.Pot,
		}
		if bigBlind > 0 {
			hr.NetBB = float64(st.ChipDelta) / float64(bigBlind)
		}
		s.Add(hr)
	}
}

// Player returns a copy of one player's statistics
func (t *Tracker) Player(userID string) (Statistics, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.players[userID]
	if !ok {
		return Statistics{}, false
	}
	cp := *s
	cp.Values = append([]float64(nil), s.Values...)
	return cp, true
}

// Leaderboard returns every player ordered by net chips, then by user ID
func (t *Tracker) Leaderboard() []Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Summary, 0, len(t.players))
	for id, s := range t.players {
		out = append(out, Summary{
			UserID:    id,
			Hands:     s.Hands,
			Wins:      s.Wins,
			Folds:     s.Folds,
			NetChips:  s.NetChips,
			BBPerHand: s.Mean(),
			StdDev:    s.StdDev(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NetChips != out[j].NetChips {
			return out[i].NetChips > out[j].NetChips
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}
