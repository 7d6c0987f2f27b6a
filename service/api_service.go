package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vocdoni/anonvote-node/api"
	"github.com/vocdoni/anonvote-node/ballotbox"
	"github.com/vocdoni/anonvote-node/log"
)

// APIService represents a service that manages the HTTP API server.
type APIService struct {
	bb       *ballotbox.BallotBox
	API      *api.API
	mu       sync.Mutex
	cancel   context.CancelFunc
	host     string
	port     int
	vkURL    string
	vkHash   string
	stopWait time.Duration
}

// NewAPI creates a new APIService instance.
func NewAPI(bb *ballotbox.BallotBox, host string, port int, disableLogging bool) *APIService {
	if disableLogging {
		api.DisabledLogging = disableLogging
		log.Debugw("API logging is disabled")
	}
	return &APIService{
		bb:       bb,
		host:     host,
		port:     port,
		stopWait: 5 * time.Second,
	}
}

// SetVerificationInfo sets the verification key location advertised by the
// API.
func (as *APIService) SetVerificationInfo(vkURL, vkHash string) {
	as.mu.Lock()
	defer as.mu.Unlock()
	as.vkURL = vkURL
	as.vkHash = vkHash
}

// Start begins the API server. It returns an error if the service
// is already running or if it fails to start.
func (as *APIService) Start(ctx context.Context) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel != nil {
		return fmt.Errorf("service already running")
	}
	var err error
	as.API, err = api.New(&api.APIConfig{
		Host:                as.host,
		Port:                as.port,
		BallotBox:           as.bb,
		VerificationKeyURL:  as.vkURL,
		VerificationKeyHash: as.vkHash,
	})
	if err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	ctx, as.cancel = context.WithCancel(ctx)
	go func() {
		<-ctx.Done()
		as.shutdown()
	}()
	return nil
}

// Stop halts the API server and waits for in-flight requests to finish.
func (as *APIService) Stop() {
	as.mu.Lock()
	cancel := as.cancel
	as.cancel = nil
	as.mu.Unlock()

	if cancel != nil {
		cancel()
		as.shutdown()
	}
}

func (as *APIService) shutdown() {
	as.mu.Lock()
	a := as.API
	as.mu.Unlock()
	if a == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), as.stopWait)
	defer cancel()
	if err := a.Stop(ctx); err != nil {
		log.Warnw("API server did not stop cleanly", "error", err)
	}
}

// HostPort returns the host and port of the API server.
func (as *APIService) HostPort() (string, int) {
	return as.host, as.port
}
