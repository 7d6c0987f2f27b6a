package log_test

import (
	"bytes"
	"encoding/json"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/anonvote-node/log"
)

func TestSecurityw(t *testing.T) {
	c := qt.New(t)
	var buf bytes.Buffer
	log.InitWriter(log.LogLevelDebug, "", &buf, nil)
	t.Cleanup(func() { log.Init(log.LogLevelError, "stderr", nil) })
	buf.Reset()

	log.Securityw("vote rejected", "reason", "DOUBLE_VOTE")

	var line map[string]any
	c.Assert(json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line), qt.IsNil)
	c.Assert(line["level"], qt.Equals, "warn")
	c.Assert(line["security"], qt.Equals, true)
	c.Assert(line["reason"], qt.Equals, "DOUBLE_VOTE")
	c.Assert(line["message"], qt.Equals, "vote rejected")
}

func TestLevel(t *testing.T) {
	c := qt.New(t)
	var buf bytes.Buffer
	t.Cleanup(func() { log.Init(log.LogLevelError, "stderr", nil) })

	log.InitWriter(log.LogLevelWarn, "", &buf, nil)
	c.Assert(log.Level(), qt.Equals, log.LogLevelWarn)
	buf.Reset()
	log.Infow("hidden")
	c.Assert(buf.Len(), qt.Equals, 0)

	_, err := log.ParseLevel("verbose")
	c.Assert(err, qt.IsNotNil)
}
