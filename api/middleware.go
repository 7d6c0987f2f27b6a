package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vocdoni/anonvote-node/log"
)

// DisabledLogging is a global flag to disable logging middleware
var DisabledLogging = false

// jsonRegex matches common JSON starting patterns
var jsonRegex = regexp.MustCompile(`^\s*[\[{]`)

// LoggingConfig holds configuration for the logging middleware
type LoggingConfig struct {
	MaxBodyLog       int
	ExcludedPrefixes []string // URL path prefixes to exclude from logging
	RedactedFields   []string // top level JSON body fields never logged
}

// DefaultLoggingConfig returns the logging configuration used by the API.
// Roster uploads carry voter identities and proofs are large, so both are
// replaced by their size.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		MaxBodyLog:       512,
		ExcludedPrefixes: LogExcludedPrefixes,
		RedactedFields:   []string{"csv", "proof"},
	}
}

// shouldSkipLogging checks if the request should be skipped from logging
func (lc LoggingConfig) shouldSkipLogging(r *http.Request) bool {
	if DisabledLogging || log.Level() != log.LogLevelDebug {
		return true
	}
	for _, prefix := range lc.ExcludedPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// bodyForLog returns the loggable form of a request body. Non JSON bodies
// are not logged.
func (lc LoggingConfig) bodyForLog(body []byte) string {
	if !jsonRegex.Match(body) {
		return ""
	}
	if len(lc.RedactedFields) > 0 {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(body, &fields); err == nil {
			redacted := false
			for _, name := range lc.RedactedFields {
				if v, ok := fields[name]; ok {
					fields[name] = json.RawMessage(fmt.Sprintf(`"<%d bytes>"`, len(v)))
					redacted = true
				}
			}
			if redacted {
				var buf bytes.Buffer
				enc := json.NewEncoder(&buf)
				enc.SetEscapeHTML(false)
				if err := enc.Encode(fields); err == nil {
					body = bytes.TrimSpace(buf.Bytes())
				}
			}
		}
	}
	bodyStr := string(body)
	if len(bodyStr) > lc.MaxBodyLog {
		// cut on a rune boundary
		cut := lc.MaxBodyLog
		for cut > 0 && !utf8.RuneStart(bodyStr[cut]) {
			cut--
		}
		bodyStr = bodyStr[:cut] + "..."
	}
	// Remove quotes for cleaner logs
	return strings.ReplaceAll(bodyStr, "\"", "")
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.statusCode == 0 {
		rw.statusCode = code
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.statusCode == 0 {
		rw.statusCode = http.StatusOK
	}
	return rw.ResponseWriter.Write(b)
}

// loggingMiddleware logs requests and responses at debug level.
func loggingMiddleware(config LoggingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.shouldSkipLogging(r) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			var bodyStr string
			if r.Body != nil && r.ContentLength > 0 {
				bodyBytes, err := io.ReadAll(r.Body)
				if err != nil {
					log.Warnw("unable to read request body", "error", err, "url", r.URL.String())
					ErrMalformedBody.WithErr(err).Write(w)
					return
				}
				// Restore body for handler
				r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
				bodyStr = config.bodyForLog(bodyBytes)
			}

			wrapped := &responseWriter{ResponseWriter: w}
			log.Debugw("api request",
				"method", r.Method,
				"url", r.URL.String(),
				"body", bodyStr,
			)

			next.ServeHTTP(wrapped, r)

			log.Debugw("api response",
				"method", r.Method,
				"url", r.URL.String(),
				"status", wrapped.statusCode,
				"took", time.Since(start).String(),
			)
		})
	}
}

// electionIDMiddleware rejects requests whose electionId URL parameter is
// not a UUID. If the path does not contain the parameter, it simply calls
// the next handler.
func electionIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		electionID := chi.URLParam(r, ElectionURLParam)
		if electionID == "" {
			next.ServeHTTP(w, r)
			return
		}
		if _, err := uuid.Parse(electionID); err != nil {
			ErrMalformedElectionID.Withf("could not parse election ID: %v", err).Write(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}
