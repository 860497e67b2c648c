package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"solana-token-scanner/internal/domain"
	"solana-token-scanner/internal/logger"
	"solana-token-scanner/internal/storage"
)

const defaultEventsLimit = 100

// eventsHandler answers read queries against the event store:
//
//	/events?id=<uuid>
//	/events?mint=<mint>                  every source's events for a mint
//	/events?source=<source>&limit=<n>    newest first
//	/events?from=<rfc3339>&to=<rfc3339>
func eventsHandler(store storage.EventStore, log *logger.Entry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			http.Error(w, "event store disabled", http.StatusNotFound)
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		ctx := r.Context()
		q := r.URL.Query()

		var (
			result any
			err    error
		)
		switch {
		case q.Get("id") != "":
			result, err = store.GetByID(ctx, q.Get("id"))
		case q.Get("mint") != "":
			result, err = store.GetByMint(ctx, q.Get("mint"))
		case q.Get("source") != "":
			src, perr := domain.ParseSource(q.Get("source"))
			if perr != nil {
				http.Error(w, perr.Error(), http.StatusBadRequest)
				return
			}
			limit := defaultEventsLimit
			if v := q.Get("limit"); v != "" {
				limit, err = strconv.Atoi(v)
				if err != nil || limit <= 0 {
					http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
					return
				}
			}
			result, err = store.GetBySource(ctx, src, limit)
		case q.Get("from") != "" || q.Get("to") != "":
			from, ferr := time.Parse(time.RFC3339, q.Get("from"))
			to, terr := time.Parse(time.RFC3339, q.Get("to"))
			if ferr != nil || terr != nil {
				http.Error(w, "from and to must be RFC3339 timestamps", http.StatusBadRequest)
				return
			}
			result, err = store.GetByTimeRange(ctx, from, to)
		default:
			http.Error(w, "one of id, mint, source or from/to is required", http.StatusBadRequest)
			return
		}

		switch {
		case errors.Is(err, storage.ErrNotFound):
			http.Error(w, "not found", http.StatusNotFound)
			return
		case err != nil:
			log.WithError(err).Warn("events query failed")
			http.Error(w, "query failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	})
}
