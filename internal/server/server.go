// Package server implements the RepliKV node server: the HTTP face of one
// cluster member.
//
// The server exposes two groups of routes. The replica API under /keys is
// what peer coordinators speak through their HTTP transport; it operates on
// this member's local storage directly, so a replicated write arriving from a
// peer is applied exactly once instead of fanning out again. The cluster API
// (/stats, /cluster, /heartbeat, /metrics) serves operators and peers that
// track this member's health.
//
// Routes:
//   - PUT    /keys/{key}  store a value (snappy body, optional ?ttl=)
//   - GET    /keys/{key}  fetch a value (snappy body, 404 on miss)
//   - HEAD   /keys/{key}  existence check without touching access stats
//   - DELETE /keys/{key}  remove a key (404 when absent)
//   - POST   /clear       drop every entry on this member
//   - POST   /heartbeat   record a peer's liveness in the ring
//   - GET    /stats       aggregated cache statistics as JSON
//   - GET    /cluster     topology and placement parameters as JSON
//   - GET    /metrics     Prometheus metrics
//
// Example usage:
//
//	srv := server.New(coord, nodeID, cfg.Address())
//	go func() {
//		if err := srv.Start(); err != nil {
//			log.Fatal(err)
//		}
//	}()
//	defer srv.Stop(context.Background())
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/golang/snappy"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/replikv/replikv/pkg/cluster"
	"github.com/replikv/replikv/pkg/transport"
)

const (
	readHeaderTimeout = 10 * time.Second
	maxValueBytes     = 32 << 20 // refuse request bodies past 32 MiB
)

// Server serves one cluster member's HTTP API.
type Server struct {
	coord  *cluster.Coordinator
	nodeID string
	http   *http.Server
	log    *logrus.Entry
}

// heartbeatRequest is the body of POST /heartbeat.
type heartbeatRequest struct {
	ID          string `json:"id"`
	MemoryUsage int64  `json:"memoryUsage"`
}

// New creates a Server for the node hosted under nodeID by coord, listening
// on addr. The server is not started until Start is called.
func New(coord *cluster.Coordinator, nodeID, addr string) *Server {
	s := &Server{
		coord:  coord,
		nodeID: nodeID,
		log:    logrus.WithFields(logrus.Fields{"component": "server", "node": nodeID}),
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

// Handler returns the server's route table. Exposed so tests can drive the
// server through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	// Match the escaped path so keys containing "/" stay one segment;
	// keyVar unescapes them afterwards.
	r.UseEncodedPath()

	r.HandleFunc("/keys/{key}", s.handlePut).Methods(http.MethodPut)
	r.HandleFunc("/keys/{key}", s.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/keys/{key}", s.handleExists).Methods(http.MethodHead)
	r.HandleFunc("/keys/{key}", s.handleDelete).Methods(http.MethodDelete)
	r.HandleFunc("/clear", s.handleClear).Methods(http.MethodPost)
	r.HandleFunc("/heartbeat", s.handleHeartbeat).Methods(http.MethodPost)
	r.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/cluster", s.handleClusterInfo).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.metricsRegistry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return r
}

// Start begins serving and blocks until the server is stopped or fails.
func (s *Server) Start() error {
	s.log.WithField("addr", s.http.Addr).Info("node server listening")
	if err := s.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully, letting in-flight requests finish
// until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("node server shutting down")
	return s.http.Shutdown(ctx)
}

// metricsRegistry builds a registry exposing this member's cache counters.
// Each server carries its own registry so several members can share a test
// process without collector collisions.
func (s *Server) metricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"node": s.nodeID}

	gauge := func(name, help string, value func(cluster.Statistics) float64) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   "replikv",
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		}, func() float64 {
			return value(s.coord.Statistics())
		})
	}

	reg.MustRegister(
		gauge("hits_total", "Cache hits served by nodes in this process.", func(st cluster.Statistics) float64 {
			return float64(st.HitCount)
		}),
		gauge("misses_total", "Cache misses served by nodes in this process.", func(st cluster.Statistics) float64 {
			return float64(st.MissCount)
		}),
		gauge("evictions_total", "Entries evicted by nodes in this process.", func(st cluster.Statistics) float64 {
			return float64(st.EvictionCount)
		}),
		gauge("memory_bytes", "Approximate memory used by nodes in this process.", func(st cluster.Statistics) float64 {
			return float64(st.MemoryUsage)
		}),
		gauge("replication_failures_total", "Replica writes that failed during fan-out.", func(st cluster.Statistics) float64 {
			return float64(st.ReplicationFailures)
		}),
		gauge("cluster_nodes", "Members currently in the hash ring.", func(st cluster.Statistics) float64 {
			return float64(st.NodeCount)
		}),
	)
	return reg
}

// keyVar extracts and unescapes the {key} route variable.
func keyVar(r *http.Request) (string, error) {
	return url.PathUnescape(mux.Vars(r)["key"])
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	n := s.coord.Node(s.nodeID)
	if n == nil {
		http.Error(w, "node not hosted here", http.StatusServiceUnavailable)
		return
	}

	key, err := keyVar(r)
	if err != nil {
		http.Error(w, "invalid key: "+err.Error(), http.StatusBadRequest)
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxValueBytes))
	if err != nil {
		http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if r.Header.Get("Content-Encoding") == transport.ContentEncodingSnappy {
		raw, err = snappy.Decode(nil, raw)
		if err != nil {
			http.Error(w, "decode body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	var ttl time.Duration
	if q := r.URL.Query().Get("ttl"); q != "" {
		ttl, err = time.ParseDuration(q)
		if err != nil {
			http.Error(w, "invalid ttl: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	n.Put(key, string(raw), ttl)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	n := s.coord.Node(s.nodeID)
	if n == nil {
		http.Error(w, "node not hosted here", http.StatusServiceUnavailable)
		return
	}

	key, err := keyVar(r)
	if err != nil {
		http.Error(w, "invalid key: "+err.Error(), http.StatusBadRequest)
		return
	}

	value, found := n.Get(key)
	if !found {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Encoding", transport.ContentEncodingSnappy)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(snappy.Encode(nil, []byte(value))); err != nil {
		s.log.WithError(err).Warn("failed to write response body")
	}
}

func (s *Server) handleExists(w http.ResponseWriter, r *http.Request) {
	n := s.coord.Node(s.nodeID)
	if n == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	key, err := keyVar(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if n.Exists(key) {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	n := s.coord.Node(s.nodeID)
	if n == nil {
		http.Error(w, "node not hosted here", http.StatusServiceUnavailable)
		return
	}

	key, err := keyVar(r)
	if err != nil {
		http.Error(w, "invalid key: "+err.Error(), http.StatusBadRequest)
		return
	}

	if n.Delete(key) {
		w.WriteHeader(http.StatusNoContent)
	} else {
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *Server) handleClear(w http.ResponseWriter, _ *http.Request) {
	n := s.coord.Node(s.nodeID)
	if n == nil {
		http.Error(w, "node not hosted here", http.StatusServiceUnavailable)
		return
	}

	n.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req heartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "decode heartbeat: "+err.Error(), http.StatusBadRequest)
		return
	}

	if !s.coord.Ring().Heartbeat(req.ID, req.MemoryUsage) {
		http.Error(w, "unknown node: "+req.ID, http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.coord.Statistics(), s.log)
}

func (s *Server) handleClusterInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.coord.ClusterInfo(), s.log)
}

func writeJSON(w http.ResponseWriter, v interface{}, log *logrus.Entry) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("failed to encode response")
	}
}
