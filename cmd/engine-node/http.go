// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luxfi/floatingtemple/engine"
)

var errServerClosed = http.ErrServerClosed

func newServer(addr string, mux http.Handler) *http.Server {
	return &http.Server{Addr: addr, Handler: mux}
}

// newDiagnosticsMux serves /metrics (Prometheus) and /dump/<object-id-hex>
// (the object's Dump output, per §6, cached in dumpCache between scrapes).
func newDiagnosticsMux(store *engine.TransactionStore, reg *prometheus.Registry, dumpCache *lru.Cache) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/dump/", func(w http.ResponseWriter, r *http.Request) {
		hex := strings.TrimPrefix(r.URL.Path, "/dump/")
		if cached, ok := dumpCache.Get(hex); ok {
			fmt.Fprint(w, cached.(string))
			return
		}

		id, err := parseObjectIDHex(hex)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var sb strings.Builder
		if err := store.DumpObject(id, &sb); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		dumpCache.Add(hex, sb.String())
		fmt.Fprint(w, sb.String())
	})
	return mux
}

func parseObjectIDHex(s string) (engine.ObjectID, error) {
	var id engine.ObjectID
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != len(id) {
		return engine.ObjectID{}, fmt.Errorf("invalid object id %q", s)
	}
	copy(id[:], raw)
	return id, nil
}
