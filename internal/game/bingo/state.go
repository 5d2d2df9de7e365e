package bingo

import (
	"fmt"
	"slices"

	"bingo-engine/internal/model"
)

// transitions lists the states each state may move to. Only active and
// paused move back and forth; everything else only moves forward.
var transitions = map[model.MatchStatus][]model.MatchStatus{
	model.MatchDraft:   {model.MatchWaiting, model.MatchFinished},
	model.MatchWaiting: {model.MatchActive, model.MatchFinished},
	model.MatchActive:  {model.MatchPaused, model.MatchFinished},
	model.MatchPaused:  {model.MatchActive, model.MatchFinished},
}

// CanTransition reports whether a match may move from one status to another.
func CanTransition(from, to model.MatchStatus) bool {
	return slices.Contains(transitions[from], to)
}

// From returns every status that may move to the given one.
func From(to model.MatchStatus) []model.MatchStatus {
	var from []model.MatchStatus
	for _, s := range []model.MatchStatus{model.MatchDraft, model.MatchWaiting, model.MatchActive, model.MatchPaused} {
		if CanTransition(s, to) {
			from = append(from, s)
		}
	}
	return from
}

// CheckTransition returns an ErrInvalidTransition describing a forbidden move.
func CheckTransition(from, to model.MatchStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("cannot move match from %s to %s: %w", from, to, model.ErrInvalidTransition)
	}
	return nil
}

// CanJoin reports whether another player may join the match.
func CanJoin(m *model.Match, players, maxPlayers int) bool {
	return m.Status == model.MatchWaiting && players < maxPlayers
}

// JoinError explains why a player cannot join, or returns nil.
func JoinError(m *model.Match, players, maxPlayers int) error {
	if m.Status != model.MatchWaiting {
		return model.ErrMatchNotJoinable
	}
	if players >= maxPlayers {
		return model.ErrMatchFull
	}
	return nil
}
