package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"SlackConnect/backend"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// relay passes a successful backend reply through untouched. Statuses that
// forbid a body are relayed without one.
func relay(w http.ResponseWriter, resp *backend.Response) {
	if resp.Status == http.StatusNoContent || resp.Status == http.StatusNotModified {
		w.WriteHeader(resp.Status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	w.Write(resp.Body)
}

// upstreamFailure logs what the backend said and answers with msg only.
func upstreamFailure(w http.ResponseWriter, r *http.Request, err error, msg string) {
	logUpstream(msg, err, "route", r.URL.Path)
	writeError(w, http.StatusInternalServerError, msg)
}

func logUpstream(msg string, err error, kv ...any) {
	ctx := append(kv, "err", err)
	var ue *backend.UpstreamError
	if errors.As(err, &ue) {
		ctx = append(ctx, "upstream_status", ue.Status, "upstream_body", ue.Detail)
	}
	log.Error(msg, ctx...)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// field pairs a request field name with whether it was supplied.
type field struct {
	name    string
	present bool
}

// missingFields returns a message naming every absent field, or "" when all
// are present.
func missingFields(fields ...field) string {
	var missing []string
	for _, f := range fields {
		if !f.present {
			missing = append(missing, f.name)
		}
	}
	switch len(missing) {
	case 0:
		return ""
	case 1:
		return missing[0] + " is required"
	default:
		return strings.Join(missing[:len(missing)-1], ", ") + " and " + missing[len(missing)-1] + " are required"
	}
}

// truthy treats null, false, 0, "" and absent values as not supplied.
func truthy(raw json.RawMessage) bool {
	switch s := strings.TrimSpace(string(raw)); s {
	case "", "null", "false", "0", `""`:
		return false
	}
	return true
}
