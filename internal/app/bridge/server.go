package bridge

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Poltergeis/api-local-websockets/internal/ports"
)

// Server accepts WebSocket upgrades and attaches each connection to
// the hub. The devices and dashboards connecting here live on the
// local network, so cross-origin upgrades are allowed.
type Server struct {
	hub    *Hub
	router *Router
	obs    ports.Observability
	pol    ports.Policy

	httpSrv  *http.Server
	upgrader websocket.Upgrader
}

func NewServer(addr, path string, hub *Hub, router *Router, obs ports.Observability, pol ports.Policy) *Server {
	s := &Server{
		hub:    hub,
		router: router,
		obs:    obs,
		pol:    pol,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc(path, s.handleWS)
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.obs.LogWarn("websocket upgrade failed",
			ports.Field{Key: "remote", Value: r.RemoteAddr},
			ports.Field{Key: "error", Value: err.Error()})
		return
	}

	client := newClient(s.hub, conn, s.router, s.obs, s.pol)
	s.hub.Register(client)
	s.obs.LogInfo("client connected",
		ports.Field{Key: "remote", Value: conn.RemoteAddr().String()})

	// The request context dies when this handler returns (the upgrade
	// hijacks the connection), so pumps get their own context.
	go client.writePump()
	go client.readPump(context.Background())
}

// Start begins serving in a background goroutine. Listen errors other
// than a clean shutdown are reported through errCh.
func (s *Server) Start(errCh chan<- error) {
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
