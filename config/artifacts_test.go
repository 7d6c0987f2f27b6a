package config

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	qt "github.com/frankban/quicktest"
)

func hashOf(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func TestArtifactLocalFile(t *testing.T) {
	c := qt.New(t)
	content := []byte(`{"protocol":"groth16"}`)
	file := filepath.Join(t.TempDir(), "vk.json")
	c.Assert(os.WriteFile(file, content, 0o600), qt.IsNil)

	a, err := NewArtifact("vk", file, "", "0x"+hashOf(content))
	c.Assert(err, qt.IsNil)
	c.Assert(a.Load(t.TempDir()), qt.IsNil)
	c.Assert(a.Content, qt.DeepEquals, content)
	c.Assert(a.SHA256(), qt.Equals, hashOf(content))

	// without a hash the file is trusted as is
	a, err = NewArtifact("vk", file, "", "")
	c.Assert(err, qt.IsNil)
	c.Assert(a.Load(""), qt.IsNil)

	a, err = NewArtifact("vk", file, "", hashOf([]byte("other")))
	c.Assert(err, qt.IsNil)
	c.Assert(a.Load(""), qt.ErrorMatches, "hash mismatch for vk.*")

	_, err = NewArtifact("vk", file, "", "abcd")
	c.Assert(err, qt.ErrorMatches, "invalid vk hash.*")
}

func TestArtifactDownload(t *testing.T) {
	c := qt.New(t)
	content := []byte(`{"protocol":"groth16","nPublic":5}`)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/vk.json" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(content)
	}))
	defer srv.Close()
	cacheDir := filepath.Join(t.TempDir(), "artifacts")
	ctx := context.Background()

	a, err := NewArtifact("vk", "", srv.URL+"/vk.json", hashOf(content))
	c.Assert(err, qt.IsNil)
	c.Assert(a.Load(cacheDir), qt.IsNotNil)
	c.Assert(a.Download(ctx, cacheDir), qt.IsNil)
	c.Assert(a.Load(cacheDir), qt.IsNil)
	c.Assert(a.Content, qt.DeepEquals, content)

	// cached, no second request
	c.Assert(a.Download(ctx, cacheDir), qt.IsNil)
	c.Assert(hits.Load(), qt.Equals, int32(1))

	bad, err := NewArtifact("vk", "", srv.URL+"/vk.json", hashOf([]byte("tampered")))
	c.Assert(err, qt.IsNil)
	c.Assert(bad.Download(ctx, cacheDir), qt.ErrorMatches, "hash mismatch.*")
	_, err = os.Stat(filepath.Join(cacheDir, hashOf([]byte("tampered"))))
	c.Assert(os.IsNotExist(err), qt.IsTrue)

	missing, err := NewArtifact("vk", "", srv.URL+"/missing.json", hashOf(content[:4]))
	c.Assert(err, qt.IsNil)
	c.Assert(missing.Download(ctx, cacheDir), qt.ErrorMatches, ".*http status: 404")

	noHash, err := NewArtifact("vk", "", srv.URL+"/vk.json", "")
	c.Assert(err, qt.IsNil)
	c.Assert(noHash.Download(ctx, cacheDir), qt.IsNotNil)
}

func TestVoteProofVerificationKeyURL(t *testing.T) {
	c := qt.New(t)
	c.Assert(VoteProofVerificationKeyURL("0xab12"), qt.Equals, DefaultArtifactsBaseURL+"/"+DefaultArtifactsRelease+"/ab12.json")
}
