// Package status serves a small HTTP endpoint for operators. It is
// off by default; the IPC protocol itself carries no health or
// metrics traffic.
package status

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Response struct {
	Status             string `json:"status"`
	Uptime             string `json:"uptime"`
	ConnectionsHandled uint64 `json:"connectionsHandled"`
}

type Server struct {
	httpServer  *http.Server
	started     time.Time
	connections func() uint64
}

// NewServer builds a status server on listen. connections reports
// the IPC server's completed-connection count.
func NewServer(listen string, connections func() uint64) *Server {
	s := &Server{
		started:     time.Now(),
		connections: connections,
	}

	router := mux.NewRouter().StrictSlash(true)
	router.Methods("GET").Path("/v1/status").HandlerFunc(s.getStatus)

	s.httpServer = &http.Server{
		Addr:    listen,
		Handler: handlers.LoggingHandler(os.Stdout, router),
	}
	return s
}

// Start serves in the background. Listen failures are logged, not
// fatal: the status endpoint is auxiliary to the IPC listener.
func (s *Server) Start() {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Error("Status server failed")
		}
	}()
}

func (s *Server) Close() error {
	return s.httpServer.Close()
}

func (s *Server) getStatus(w http.ResponseWriter, req *http.Request) {
	resp := Response{
		Status:             "running",
		Uptime:             time.Since(s.started).String(),
		ConnectionsHandled: s.connections(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(&resp); err != nil {
		logrus.WithError(err).Error("Failed to write status response")
	}
}
