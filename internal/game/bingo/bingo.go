// Package bingo implements the pure rules of the round engine: the number
// universe, card generation, marking, the full-coverage win check and the
// match state machine. Nothing here touches storage.
package bingo

import (
	"fmt"
	"math/rand"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"bingo-engine/internal/model"
)

// DefaultUniverse is the classic 75-ball game.
const DefaultUniverse = 75

// RandomSource is the randomness injected into card generation and draws.
type RandomSource interface {
	// Intn returns a uniform value in [0, n).
	Intn(n int) int
}

type lockedSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSource returns a goroutine-safe RandomSource. A zero seed uses the
// current time.
func NewSource(seed int64) RandomSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedSource{rnd: rand.New(rand.NewSource(seed))}
}

func (s *lockedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Intn(n)
}

// Universe returns the numbers 1..max in ascending order.
func Universe(max int) []int {
	nums := make([]int, max)
	for i := range nums {
		nums[i] = i + 1
	}
	return nums
}

// GenerateNumbers samples size distinct numbers from 1..universe uniformly
// and returns them sorted ascending.
func GenerateNumbers(rng RandomSource, universe, size int) ([]int, error) {
	if size < 1 || size > universe {
		return nil, fmt.Errorf("card size %d outside 1..%d: %w", size, universe, model.ErrInvalidConfig)
	}

	pool := Universe(universe)
	// Partial Fisher-Yates: the first size slots end up a uniform sample.
	for i := 0; i < size; i++ {
		j := i + rng.Intn(universe-i)
		pool[i], pool[j] = pool[j], pool[i]
	}

	nums := slices.Clone(pool[:size])
	sort.Ints(nums)
	return nums, nil
}

// Remaining returns the numbers of 1..universe not yet drawn, ascending.
func Remaining(universe int, drawn []int) []int {
	seen := NewNumberSet(drawn...)
	available := make([]int, 0, universe-len(seen))
	for n := 1; n <= universe; n++ {
		if !seen.Has(n) {
			available = append(available, n)
		}
	}
	return available
}

// PickNumber selects one of the available numbers uniformly.
func PickNumber(rng RandomSource, available []int) (int, bool) {
	if len(available) == 0 {
		return 0, false
	}
	return available[rng.Intn(len(available))], true
}

// NumberSet is a set of drawn numbers.
type NumberSet map[int]struct{}

// NewNumberSet builds a set from numbers.
func NewNumberSet(nums ...int) NumberSet {
	s := make(NumberSet, len(nums))
	for _, n := range nums {
		s[n] = struct{}{}
	}
	return s
}

// DrawnSet collects the numbers of draws into a set.
func DrawnSet(draws []model.Draw) NumberSet {
	s := make(NumberSet, len(draws))
	for _, d := range draws {
		s[d.Number] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s NumberSet) Has(n int) bool {
	_, ok := s[n]
	return ok
}

// Covers reports whether every number in nums is in the set.
func (s NumberSet) Covers(nums []int) bool {
	for _, n := range nums {
		if !s.Has(n) {
			return false
		}
	}
	return true
}

// MarkNumber adds n to the card's marked numbers. It returns false, and
// leaves the card alone, when n is not on the card. Marking twice is a no-op.
func MarkNumber(card *model.Card, n int) bool {
	if !slices.Contains(card.Numbers, n) {
		return false
	}
	if !slices.Contains(card.Marked, n) {
		card.Marked = append(card.Marked, n)
	}
	return true
}

// CheckBingo reports whether every number on the card has been drawn.
// It never changes the card.
func CheckBingo(card *model.Card, drawn NumberSet) bool {
	return len(card.Numbers) > 0 && drawn.Covers(card.Numbers)
}

// WinningCards filters cards that cover drawn and have not won yet, ordered
// by increasing card id. That order is the tie-break when several cards
// complete on the same draw.
func WinningCards(cards []model.Card, drawn NumberSet) []model.Card {
	var winners []model.Card
	for _, c := range cards {
		if !c.IsBingo && CheckBingo(&c, drawn) {
			winners = append(winners, c)
		}
	}
	slices.SortFunc(winners, func(a, b model.Card) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return winners
}

// NewInviteCode returns an 8 character uppercase invite code.
func NewInviteCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
