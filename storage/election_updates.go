package storage

import (
	"maps"
	"time"

	"github.com/vocdoni/anonvote-node/types"
)

// Common update functions for use with UpdateElection

// ElectionUpdateCallbackSetStatus returns a function that moves the election
// to status. Only single forward steps of the status machine are accepted;
// the start and end times are stamped when voting opens and closes.
func ElectionUpdateCallbackSetStatus(status types.ElectionStatus) func(*types.Election) error {
	return func(e *types.Election) error {
		if !e.Status.CanTransitionTo(status) {
			return types.ErrInvalidStatusTransition.Withf("%s -> %s", e.Status, status)
		}
		e.Status = status
		switch status {
		case types.ElectionStatusVotingOpen:
			e.StartTime = time.Now()
		case types.ElectionStatusVotingClosed:
			e.EndTime = time.Now()
		}
		return nil
	}
}

// ElectionUpdateCallbackFinalization returns a function that marks a closed
// election as tallied with results.
func ElectionUpdateCallbackFinalization(results map[string]uint64) func(*types.Election) error {
	return func(e *types.Election) error {
		if !e.Status.CanTransitionTo(types.ElectionStatusTallied) {
			return types.ErrInvalidStatusTransition.Withf("%s -> %s", e.Status, types.ElectionStatusTallied)
		}
		e.Status = types.ElectionStatusTallied
		e.Results = maps.Clone(results)
		return nil
	}
}
