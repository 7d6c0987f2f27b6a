package service

import (
	"context"
	"fmt"
	"time"

	"github.com/vocdoni/anonvote-node/circuits/voteproof"
	"github.com/vocdoni/anonvote-node/config"
	"github.com/vocdoni/anonvote-node/log"
	"golang.org/x/sync/errgroup"
)

// DownloadArtifacts downloads all the artifacts concurrently into cacheDir
// and loads them.
func DownloadArtifacts(timeout time.Duration, cacheDir string, artifacts ...*config.Artifact) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for _, a := range artifacts {
		g.Go(func() error {
			if err := a.Download(ctx, cacheDir); err != nil {
				return fmt.Errorf("error downloading %s: %w", a.Name, err)
			}
			return a.Load(cacheDir)
		})
	}
	log.Infow("preparing verification artifacts", "timeout", timeout, "dir", cacheDir, "count", len(artifacts))
	return g.Wait()
}

// VoteProofVerifier prepares the verification key artifact and builds the
// vote proof verifier from it.
func VoteProofVerifier(timeout time.Duration, cacheDir string, vk *config.Artifact) (*voteproof.Verifier, error) {
	if err := DownloadArtifacts(timeout, cacheDir, vk); err != nil {
		return nil, err
	}
	v, err := voteproof.NewVerifier(vk.Content)
	if err != nil {
		return nil, fmt.Errorf("invalid verification key: %w", err)
	}
	log.Infow("vote proof verification key loaded", "sha256", vk.SHA256())
	return v, nil
}
