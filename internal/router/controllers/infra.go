package controllers

import (
	"net/http"

	"github.com/textileio/go-autopay/buildinfo"
)

// Version returns git information of the running binary.
func Version(rw http.ResponseWriter, _ *http.Request) {
	writeJSON(rw, http.StatusOK, buildinfo.GetSummary())
}

// HealthHandler serves health check requests.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
