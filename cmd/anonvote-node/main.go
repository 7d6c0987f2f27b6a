package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/vocdoni/anonvote-node/ballotbox"
	"github.com/vocdoni/anonvote-node/config"
	"github.com/vocdoni/anonvote-node/crypto/signatures/ethereum"
	"github.com/vocdoni/anonvote-node/db"
	"github.com/vocdoni/anonvote-node/db/metadb"
	"github.com/vocdoni/anonvote-node/log"
	"github.com/vocdoni/anonvote-node/service"
	"github.com/vocdoni/anonvote-node/storage"
)

// Services holds all the running services
type Services struct {
	Storage   *storage.Storage
	BallotBox *ballotbox.BallotBox
	API       *service.APIService
	Finalizer *service.FinalizerService
}

func main() {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := validateConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging
	var errorOutput io.Writer
	if cfg.Log.ErrorFile != "" {
		f, err := os.OpenFile(cfg.Log.ErrorFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening log error file: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()
		errorOutput = f
	}
	log.Init(cfg.Log.Level, cfg.Log.Output, errorOutput)
	log.Infow("starting anonvote-node", "version", Version)

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := setupServices(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to setup services: %v", err)
	}
	defer shutdownServices(services)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	log.Infow("received signal, shutting down", "signal", sig.String())
}

// setupServices initializes and starts all required services
func setupServices(ctx context.Context, cfg *Config) (*Services, error) {
	services := &Services{}

	// Prepare the vote proof verifier
	vkURL := cfg.VoteProof.VKURL
	if vkURL == "" && cfg.VoteProof.VKHash != "" {
		vkURL = config.VoteProofVerificationKeyURL(cfg.VoteProof.VKHash)
	}
	vk, err := config.NewArtifact("vote proof verification key", cfg.VoteProof.VKFile, vkURL, cfg.VoteProof.VKHash)
	if err != nil {
		return nil, err
	}
	verifier, err := service.VoteProofVerifier(artifactsTimeout, filepath.Join(cfg.Datadir, "artifacts"), vk)
	if err != nil {
		return nil, fmt.Errorf("failed to load vote proof verifier: %w", err)
	}

	// Receipt signer
	var signer *ethereum.Signer
	if cfg.Signer.PrivKey != "" {
		if signer, err = ethereum.NewSignerFromHex(cfg.Signer.PrivKey); err != nil {
			return nil, fmt.Errorf("invalid signer private key: %w", err)
		}
		log.Infow("vote receipts will be signed", "address", signer.Address().Hex())
	} else {
		log.Warnw("no signer private key provided, vote receipts will not be signed")
	}

	// Initialize storage database
	dbPath := filepath.Join(cfg.Datadir, "db")
	if cfg.DB.Type == db.TypeMongo {
		dbPath = "anonvote"
	}
	log.Infow("initializing storage", "path", dbPath, "type", cfg.DB.Type)
	storagedb, err := metadb.New(cfg.DB.Type, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	services.Storage = storage.New(storagedb)
	services.BallotBox = ballotbox.New(services.Storage, verifier, signer)

	// Start API service
	log.Infow("starting API service", "host", cfg.API.Host, "port", cfg.API.Port)
	services.API = service.NewAPI(services.BallotBox, cfg.API.Host, cfg.API.Port, cfg.API.NoLog)
	services.API.SetVerificationInfo(vk.RemoteURL, vk.SHA256())
	if err := services.API.Start(ctx); err != nil {
		return services, fmt.Errorf("failed to start API service: %w", err)
	}

	// Start finalizer service
	log.Infow("starting finalizer service", "delay", cfg.Tally.Delay, "monitorInterval", cfg.Tally.Interval)
	services.Finalizer = service.NewFinalizer(services.BallotBox, cfg.Tally.Delay)
	if err := services.Finalizer.Start(ctx, cfg.Tally.Interval); err != nil {
		return services, fmt.Errorf("failed to start finalizer service: %w", err)
	}

	log.Info("anonvote-node is running, ready to accept votes!")
	return services, nil
}

// shutdownServices gracefully shuts down all services
func shutdownServices(services *Services) {
	if services == nil {
		return
	}

	// Stop services in reverse order of startup
	if services.Finalizer != nil {
		services.Finalizer.Stop()
	}
	if services.API != nil {
		services.API.Stop()
	}
	if services.Storage != nil {
		services.Storage.Close()
	}
}
