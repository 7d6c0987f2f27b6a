package api

import (
	"net/http"
)

// nodeInfo returns the verification key and the receipt signer of the node,
// so voters can check they prove against the right circuit and later verify
// their receipts.
// GET /info
func (a *API) nodeInfo(w http.ResponseWriter, r *http.Request) {
	httpWriteJSON(w, a.info)
}
