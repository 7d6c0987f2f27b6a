package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/vocdoni/anonvote-node/ballotbox"
	"github.com/vocdoni/anonvote-node/log"
)

// APIConfig type represents the configuration for the API HTTP server.
// It includes the host, port and the ballot box to serve.
type APIConfig struct {
	Host      string
	Port      int
	BallotBox *ballotbox.BallotBox
	// Verification material advertised on /info
	VerificationKeyURL  string
	VerificationKeyHash string
}

// API type represents the API HTTP server of the node.
type API struct {
	router *chi.Mux
	server *http.Server
	bb     *ballotbox.BallotBox
	info   NodeInfo
}

// New creates a new API instance with the given configuration and starts
// the HTTP server.
func New(conf *APIConfig) (*API, error) {
	a, err := newAPI(conf)
	if err != nil {
		return nil, err
	}
	a.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", conf.Host, conf.Port),
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infow("Starting API server", "host", conf.Host, "port", conf.Port)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
	return a, nil
}

// newAPI builds the API and its router without listening.
func newAPI(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.BallotBox == nil {
		return nil, fmt.Errorf("missing ballot box instance")
	}
	a := &API{
		bb: conf.BallotBox,
		info: NodeInfo{
			VerificationKeyURL:  conf.VerificationKeyURL,
			VerificationKeyHash: conf.VerificationKeyHash,
		},
	}
	if signer := conf.BallotBox.Signer(); signer != nil {
		a.info.ReceiptSigner = signer.Address().Bytes()
	}
	a.initRouter()
	return a, nil
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// Stop gracefully shuts down the HTTP server.
func (a *API) Stop(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// registerHandlers registers all the HTTP handlers for the API endpoints.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", InfoEndpoint, "method", "GET")
	a.router.Get(InfoEndpoint, a.nodeInfo)

	// elections endpoints
	log.Infow("register handler", "endpoint", ElectionsEndpoint, "method", "POST")
	a.router.Post(ElectionsEndpoint, a.newElection)
	log.Infow("register handler", "endpoint", ElectionsEndpoint, "method", "GET")
	a.router.Get(ElectionsEndpoint, a.elections)

	election := a.router.With(electionIDMiddleware)
	log.Infow("register handler", "endpoint", ElectionEndpoint, "method", "GET")
	election.Get(ElectionEndpoint, a.election)
	log.Infow("register handler", "endpoint", ElectionStatusEndpoint, "method", "POST")
	election.Post(ElectionStatusEndpoint, a.setElectionStatus)
	log.Infow("register handler", "endpoint", ElectionCandidatesEndpoint, "method", "POST")
	election.Post(ElectionCandidatesEndpoint, a.addCandidate)
	log.Infow("register handler", "endpoint", ElectionCandidatesEndpoint, "method", "GET")
	election.Get(ElectionCandidatesEndpoint, a.candidates)
	log.Infow("register handler", "endpoint", ElectionVotersEndpoint, "method", "POST")
	election.Post(ElectionVotersEndpoint, a.importRoster)
	log.Infow("register handler", "endpoint", ElectionEligibilityEndpoint, "method", "POST")
	election.Post(ElectionEligibilityEndpoint, a.checkEligibility)

	// votes endpoints
	log.Infow("register handler", "endpoint", VotesEndpoint, "method", "POST")
	a.router.Post(VotesEndpoint, a.newVote)
	log.Infow("register handler", "endpoint", ElectionTallyEndpoint, "method", "GET")
	election.Get(ElectionTallyEndpoint, a.tally)
	log.Infow("register handler", "endpoint", ElectionTallyEndpoint, "method", "POST")
	election.Post(ElectionTallyEndpoint, a.finalizeTally)
	log.Infow("register handler", "endpoint", ElectionAuditEndpoint, "method", "GET")
	election.Get(ElectionAuditEndpoint, a.audit)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)
	a.router.Use(loggingMiddleware(DefaultLoggingConfig()))
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))

	a.registerHandlers()
}
