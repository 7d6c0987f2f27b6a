// Package config provides the verification artifacts of the node: where the
// vote circuit verification key comes from and how its integrity is checked.
package config

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/vocdoni/anonvote-node/log"
	"github.com/vocdoni/anonvote-node/types"
)

const (
	// DefaultArtifactsBaseURL is the base URL for circuit artifacts storage
	DefaultArtifactsBaseURL = "https://circuits.ams3.cdn.digitaloceanspaces.com"
	// DefaultArtifactsRelease is the release version for circuit artifacts
	DefaultArtifactsRelease = "anonvote"
)

// VoteProofVerificationKeyURL returns the default location of the vote
// circuit verification key with the given hash.
func VoteProofVerificationKeyURL(hash string) string {
	return fmt.Sprintf("%s/%s/%s.json", DefaultArtifactsBaseURL, DefaultArtifactsRelease, types.TrimHex(hash))
}

// Artifact is a verification artifact identified by the SHA-256 hash of its
// content. The content is read from LocalFile if set, otherwise from the
// cache directory, and finally downloaded from RemoteURL.
type Artifact struct {
	Name      string
	LocalFile string
	RemoteURL string
	Hash      types.HexBytes
	Content   []byte
}

// NewArtifact builds an artifact from its hex encoded hash.
func NewArtifact(name, localFile, remoteURL, hexHash string) (*Artifact, error) {
	var hash types.HexBytes
	if hexHash != "" {
		var err error
		if hash, err = types.HexStringToHexBytes(hexHash); err != nil {
			return nil, fmt.Errorf("invalid %s hash: %w", name, err)
		}
		if len(hash) != sha256.Size {
			return nil, fmt.Errorf("invalid %s hash: expected %d bytes, got %d", name, sha256.Size, len(hash))
		}
	}
	return &Artifact{Name: name, LocalFile: localFile, RemoteURL: remoteURL, Hash: hash}, nil
}

// Load reads the artifact content from its local file or from the cache dir.
// It returns an error if the content is not available locally or if its hash
// does not match.
func (a *Artifact) Load(cacheDir string) error {
	if len(a.Content) != 0 {
		return nil
	}
	if a.LocalFile != "" {
		content, err := os.ReadFile(a.LocalFile)
		if err != nil {
			return fmt.Errorf("error reading %s: %w", a.Name, err)
		}
		if err := a.checkHash(content); err != nil {
			return err
		}
		a.Content = content
		return nil
	}
	if len(a.Hash) == 0 {
		return fmt.Errorf("%s: no local file and no hash provided", a.Name)
	}
	content, err := os.ReadFile(a.cachePath(cacheDir))
	if err != nil {
		return fmt.Errorf("error reading cached %s: %w", a.Name, err)
	}
	if err := a.checkHash(content); err != nil {
		return err
	}
	a.Content = content
	return nil
}

// Download fetches the artifact from its remote URL into the cache dir,
// unless it is already there. The hash is mandatory for downloads.
func (a *Artifact) Download(ctx context.Context, cacheDir string) error {
	if a.LocalFile != "" {
		return nil
	}
	if a.RemoteURL == "" {
		return fmt.Errorf("%s not available locally and remote url not provided", a.Name)
	}
	if len(a.Hash) == 0 {
		return fmt.Errorf("%s: a hash is required to download", a.Name)
	}
	if _, err := os.Stat(a.cachePath(cacheDir)); err == nil {
		return nil
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return fmt.Errorf("error creating artifacts dir: %w", err)
	}
	return downloadAndStore(ctx, a.Hash, a.RemoteURL, a.cachePath(cacheDir))
}

// SHA256 returns the hex encoded hash of the loaded content, or the expected
// hash when nothing is loaded yet.
func (a *Artifact) SHA256() string {
	if len(a.Content) == 0 {
		return a.Hash.Hex()
	}
	sum := sha256.Sum256(a.Content)
	return hex.EncodeToString(sum[:])
}

func (a *Artifact) cachePath(cacheDir string) string {
	return filepath.Join(cacheDir, a.Hash.Hex())
}

// checkHash compares content against the expected hash, if one is set.
func (a *Artifact) checkHash(content []byte) error {
	if len(a.Hash) == 0 {
		return nil
	}
	sum := sha256.Sum256(content)
	if !bytes.Equal(sum[:], a.Hash) {
		return fmt.Errorf("hash mismatch for %s: expected %x, got %x", a.Name, []byte(a.Hash), sum)
	}
	return nil
}

// progressReader wraps an io.Reader and keeps track of the total bytes read.
type progressReader struct {
	reader io.Reader
	total  int64 // updated atomically
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	atomic.AddInt64(&pr.total, int64(n))
	return n, err
}

// downloadAndStore downloads a file from a URL and stores it at path once its
// hash has been checked.
func downloadAndStore(ctx context.Context, expectedHash []byte, fileURL, path string) error {
	if _, err := url.Parse(fileURL); err != nil {
		return fmt.Errorf("error parsing the file URL provided: %w", err)
	}
	partialPath := path + ".partial"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return fmt.Errorf("error creating the file request: %w", err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("error performing the request: %w", err)
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			log.Warnw("failed to close response body", "error", err)
		}
	}()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("error downloading file %s: http status: %d", fileURL, res.StatusCode)
	}

	fd, err := os.OpenFile(partialPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("error opening artifact file: %w", err)
	}
	defer func() {
		if err := fd.Close(); err != nil {
			log.Warnw("failed to close artifact file", "error", err)
		}
	}()

	hasher := sha256.New()
	pr := &progressReader{reader: res.Body}
	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(io.MultiWriter(fd, hasher), pr)
		done <- err
	}()
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for copying := true; copying; {
		select {
		case err := <-done:
			if err != nil {
				return fmt.Errorf("error copying data to file: %w", err)
			}
			copying = false
		case <-ticker.C:
			log.Debugw("download artifacts", "url", fileURL,
				"downloaded", fmt.Sprintf("%.2fMiB", float64(atomic.LoadInt64(&pr.total))/(1024*1024)))
		}
	}

	if computed := hasher.Sum(nil); !bytes.Equal(computed, expectedHash) {
		if err := os.Remove(partialPath); err != nil {
			log.Warnw("failed to remove invalid artifact", "path", partialPath, "error", err)
		}
		return fmt.Errorf("hash mismatch: expected %x, got %x", expectedHash, computed)
	}
	if err := os.Rename(partialPath, path); err != nil {
		return fmt.Errorf("error renaming file: %w", err)
	}
	return nil
}
