package api

import (
	"fmt"
	"net/url"
	"strings"
)

// Route constants for the API endpoints

const (
	// Health endpoints
	PingEndpoint = "/ping" // Health check endpoint

	// Info endpoint
	InfoEndpoint = "/info" // GET: verification key and receipt signer of the node

	// Election endpoints
	ElectionURLParam            = "electionId"                                      // URL parameter for election ID
	ElectionsEndpoint           = "/elections"                                      // GET: List elections, POST: Create election
	ElectionEndpoint            = ElectionsEndpoint + "/{" + ElectionURLParam + "}" // GET: Get election
	ElectionStatusEndpoint      = ElectionEndpoint + "/status"                      // POST: Change election status
	ElectionCandidatesEndpoint  = ElectionEndpoint + "/candidates"                  // GET: List candidates, POST: Add candidate
	ElectionVotersEndpoint      = ElectionEndpoint + "/voters/import"               // POST: Import roster CSV
	ElectionEligibilityEndpoint = ElectionEndpoint + "/eligibility"                 // POST: Check eligibility
	ElectionTallyEndpoint       = ElectionEndpoint + "/tally"                       // GET: Tally, POST: Finalize tally
	ElectionAuditEndpoint       = ElectionEndpoint + "/audit"                       // GET: Audit log

	// Vote endpoints
	VotesEndpoint = "/votes" // POST: Submit a vote
)

// EndpointWithParam creates an endpoint URL by replacing the parameter
// placeholder with the actual value. Used to build fully qualified
// endpoint URLs.
func EndpointWithParam(path, key, param string) string {
	rawKey := fmt.Sprintf("{%s}", key)

	// Always try to replace the placeholder, even if it's after the '?'
	if strings.Contains(path, rawKey) {
		return strings.Replace(path, rawKey, url.PathEscape(param), 1)
	}

	// Fallback: add as query param
	escapedKey := url.QueryEscape(key)
	escapedVal := url.QueryEscape(param)

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}

	return fmt.Sprintf("%s%s%s=%s", path, sep, escapedKey, escapedVal)
}

// LogExcludedPrefixes defines URL prefixes to exclude from request logging
var LogExcludedPrefixes = []string{
	PingEndpoint,
	InfoEndpoint,
}
