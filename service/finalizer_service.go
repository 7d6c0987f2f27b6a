package service

import (
	"context"
	"fmt"
	"time"

	"github.com/vocdoni/anonvote-node/finalizer"
	"github.com/vocdoni/anonvote-node/log"
)

// FinalizerService represents a service that tallies closed elections,
// either on demand or once they have been closed for a while.
type FinalizerService struct {
	*finalizer.Finalizer
	cancel context.CancelFunc
}

// NewFinalizer creates a new finalizer service instance. Elections are tallied
// automatically once they have been closed for delay.
func NewFinalizer(bb finalizer.Tallier, delay time.Duration) *FinalizerService {
	return &FinalizerService{
		Finalizer: finalizer.New(bb, delay),
	}
}

// Start begins the finalizer service. The interval parameter specifies how
// often closed elections are checked; 0 disables automatic tallying. It
// returns an error if the service is already running.
func (fs *FinalizerService) Start(ctx context.Context, interval time.Duration) error {
	if fs.cancel != nil {
		return fmt.Errorf("service already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	fs.cancel = cancel

	fs.Finalizer.Start(ctx, interval)

	log.Infow("finalizer service started")
	return nil
}

// Stop halts the finalizer service.
func (fs *FinalizerService) Stop() {
	if fs.cancel != nil {
		fs.cancel()
		fs.cancel = nil

		// Wait for the goroutines to exit before resources like the database
		// are closed
		fs.Close()

		log.Infow("finalizer service stopped")
	}
}
