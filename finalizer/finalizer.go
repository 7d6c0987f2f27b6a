// Package finalizer tallies closed elections, either on demand or once they
// have been closed for a configured delay.
package finalizer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vocdoni/anonvote-node/log"
	"github.com/vocdoni/anonvote-node/types"
)

// Tallier is the part of the ballot box the finalizer drives.
type Tallier interface {
	Elections(ctx context.Context) ([]*types.Election, error)
	Election(ctx context.Context, electionID uuid.UUID) (*types.Election, error)
	FinalizeTally(ctx context.Context, electionID uuid.UUID) (*types.Election, error)
}

// Finalizer is responsible for finalizing elections.
type Finalizer struct {
	bb         Tallier
	delay      time.Duration
	OndemandCh chan uuid.UUID
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

// New creates a new Finalizer instance. Elections closed for at least delay
// are tallied by the periodic monitor.
func New(bb Tallier, delay time.Duration) *Finalizer {
	return &Finalizer{
		bb:         bb,
		delay:      delay,
		OndemandCh: make(chan uuid.UUID, 10), // Use buffered channel to prevent blocking
	}
}

// Start starts the finalizer. It will listen for elections to finalize on the
// OndemandCh channel. It will also periodically check for closed elections
// to finalize every monitorInterval; if monitorInterval is 0 it will not.
func (f *Finalizer) Start(ctx context.Context, monitorInterval time.Duration) {
	f.ctx, f.cancel = context.WithCancel(ctx)

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		for {
			select {
			case id := <-f.OndemandCh:
				if err := f.finalize(id); err != nil {
					log.Errorw(err, fmt.Sprintf("finalizing election %s", id))
				}
			case <-f.ctx.Done():
				return
			}
		}
	}()

	if monitorInterval > 0 {
		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			ticker := time.NewTicker(monitorInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					f.finalizeByDate(time.Now())
				case <-f.ctx.Done():
					return
				}
			}
		}()
	}

	log.Infow("finalizer started successfully", "delay", f.delay.String(), "interval", monitorInterval.String())
}

// Close shuts down the finalizer and waits for its goroutines to exit. It
// must be called before closing the storage.
func (f *Finalizer) Close() {
	if f.cancel == nil {
		return
	}
	f.cancel()
	f.cancel = nil

	waitCh := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(waitCh)
	}()
	select {
	case <-waitCh:
		log.Infow("finalizer closed successfully")
	case <-time.After(5 * time.Second):
		log.Warnw("some finalizer goroutines did not exit cleanly")
	}
}

// finalizeByDate queues every election closed before date minus the delay.
func (f *Finalizer) finalizeByDate(date time.Time) {
	elections, err := f.bb.Elections(f.ctx)
	if err != nil {
		log.Errorw(err, "could not list elections")
		return
	}
	for _, e := range elections {
		if e.Status != types.ElectionStatusVotingClosed {
			continue
		}
		if e.EndTime.Add(f.delay).After(date) {
			continue
		}
		log.Debugw("found election to finalize by date", "electionId", e.ID.String())
		select {
		case f.OndemandCh <- e.ID:
		case <-f.ctx.Done():
			return
		}
	}
}

// finalize tallies a closed election.
func (f *Finalizer) finalize(id uuid.UUID) error {
	e, err := f.bb.Election(f.ctx, id)
	if err != nil {
		return err
	}
	if e.Status == types.ElectionStatusTallied {
		log.Debugw("election already tallied", "electionId", id.String())
		return nil
	}
	e, err = f.bb.FinalizeTally(f.ctx, id)
	if err != nil {
		return fmt.Errorf("could not tally election %s: %w", id, err)
	}
	log.Infow("finalized election", "electionId", id.String(), "results", e.Results)
	return nil
}

// WaitUntilFinalized waits until the election is tallied and returns its
// results. Without a deadline on ctx it gives up after 60 seconds.
func (f *Finalizer) WaitUntilFinalized(ctx context.Context, id uuid.UUID) (map[string]uint64, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 60*time.Second)
		defer cancel()
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e, err := f.bb.Election(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("could not retrieve election %s: %w", id, err)
			}
			if e.Status == types.ElectionStatusTallied {
				return e.Results, nil
			}
		case <-ctx.Done():
			return nil, fmt.Errorf("timeout waiting for election %s to be finalized: %w", id, ctx.Err())
		case <-f.ctx.Done():
			return nil, fmt.Errorf("finalizer is shutting down while waiting for election %s", id)
		}
	}
}
