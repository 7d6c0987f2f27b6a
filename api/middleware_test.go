package api

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	qt "github.com/frankban/quicktest"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vocdoni/anonvote-node/log"
)

func TestLoggingMiddlewarePreservesBody(t *testing.T) {
	c := qt.New(t)
	log.Init(log.LogLevelDebug, "stderr", nil)
	defer log.Init(log.LogLevelError, "stderr", nil)

	handler := loggingMiddleware(DefaultLoggingConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(body)
	}))

	for _, body := range []string{
		`{"csv": "id,class\nA1,CS"}`,
		`[1, 2, 3]`,
		"\x00\x01\x02\x03",
		"plain text",
		"",
	} {
		req := httptest.NewRequest(http.MethodPost, VotesEndpoint, bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		c.Assert(rec.Code, qt.Equals, http.StatusCreated)
		c.Assert(rec.Body.String(), qt.Equals, body)
	}
}

func TestShouldSkipLogging(t *testing.T) {
	c := qt.New(t)
	config := DefaultLoggingConfig()
	req := func(path string) *http.Request { return httptest.NewRequest(http.MethodGet, path, nil) }

	log.Init(log.LogLevelInfo, "stderr", nil)
	c.Assert(config.shouldSkipLogging(req(VotesEndpoint)), qt.IsTrue)

	log.Init(log.LogLevelDebug, "stderr", nil)
	defer log.Init(log.LogLevelError, "stderr", nil)
	c.Assert(config.shouldSkipLogging(req(PingEndpoint)), qt.IsTrue)
	c.Assert(config.shouldSkipLogging(req(InfoEndpoint)), qt.IsTrue)
	c.Assert(config.shouldSkipLogging(req(VotesEndpoint)), qt.IsFalse)
	c.Assert(config.shouldSkipLogging(req(ElectionsEndpoint)), qt.IsFalse)

	DisabledLogging = true
	defer func() { DisabledLogging = false }()
	c.Assert(config.shouldSkipLogging(req(VotesEndpoint)), qt.IsTrue)
}

func TestBodyForLog(t *testing.T) {
	c := qt.New(t)
	config := DefaultLoggingConfig()

	got := config.bodyForLog([]byte(`{"csv":"id,class\nA1345,CSIE_3A","other":1}`))
	c.Assert(got, qt.Not(qt.Contains), "A1345")
	c.Assert(got, qt.Contains, "csv:<")
	c.Assert(got, qt.Contains, "other:1")

	got = config.bodyForLog([]byte(`{"vote":"x","proof":{"pi_a":["1","2"]},"publicSignals":["1"]}`))
	c.Assert(got, qt.Not(qt.Contains), "pi_a")
	c.Assert(got, qt.Contains, "publicSignals:[1]")

	c.Assert(config.bodyForLog([]byte("plain text")), qt.Equals, "")

	config.MaxBodyLog = 10
	got = config.bodyForLog([]byte(`[` + strings.Repeat("1,", 50) + `1]`))
	c.Assert(got, qt.HasLen, 13)
	c.Assert(strings.HasSuffix(got, "..."), qt.IsTrue)

	// a multi-byte rune across the limit is dropped whole
	config.MaxBodyLog = 3
	got = config.bodyForLog([]byte(`["é"]`))
	c.Assert(got, qt.Equals, "[...")
	c.Assert(utf8.ValidString(got), qt.IsTrue)
	got = config.bodyForLog([]byte("[\"\u00e9\"]"))
	c.Assert(utf8.ValidString(got), qt.IsTrue)

	// redaction placeholders are not HTML escaped
	config = DefaultLoggingConfig()
	got = config.bodyForLog([]byte(`{"csv":"id,class","note":"a<b"}`))
	c.Assert(got, qt.Equals, "{csv:<10 bytes>,note:a<b}")
}

func TestResponseWriterCapture(t *testing.T) {
	c := qt.New(t)
	tests := []struct {
		name           string
		handlerFunc    func(w http.ResponseWriter)
		expectedStatus int
	}{
		{
			name: "WriteHeader before Write",
			handlerFunc: func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte("test"))
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "Write without WriteHeader",
			handlerFunc: func(w http.ResponseWriter) {
				_, _ = w.Write([]byte("test"))
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "Multiple WriteHeader calls",
			handlerFunc: func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusConflict)
				w.WriteHeader(http.StatusAccepted)
			},
			expectedStatus: http.StatusConflict,
		},
	}
	for _, tt := range tests {
		c.Run(tt.name, func(c *qt.C) {
			rw := &responseWriter{ResponseWriter: httptest.NewRecorder()}
			tt.handlerFunc(rw)
			c.Assert(rw.statusCode, qt.Equals, tt.expectedStatus)
		})
	}
}

func TestElectionIDMiddleware(t *testing.T) {
	c := qt.New(t)
	router := chi.NewRouter()
	router.With(electionIDMiddleware).Get(ElectionEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, EndpointWithParam(ElectionEndpoint, ElectionURLParam, uuid.NewString()), nil))
	c.Assert(rec.Code, qt.Equals, http.StatusOK)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, EndpointWithParam(ElectionEndpoint, ElectionURLParam, "not-a-uuid"), nil))
	c.Assert(rec.Code, qt.Equals, ErrMalformedElectionID.HTTPstatus)
	c.Assert(rec.Body.String(), qt.Contains, "could not parse election ID")
}
