package sink

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sort"
	"strconv"

	"github.com/NotCoffee418/smartmeter_datacollector/pkg/types"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	websocketDefaultAddress = "0.0.0.0"
	websocketDefaultPort    = 9039
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Readers are on the local network
	},
}

func NewWebsocketSink(host string, port int, name string, log zerolog.Logger) *WebsocketSink {
	if host == "" {
		host = websocketDefaultAddress
	}
	if port == 0 {
		port = websocketDefaultPort
	}
	return &WebsocketSink{
		name:    name,
		address: net.JoinHostPort(host, strconv.Itoa(port)),
		latest:  make(map[latestKey]types.Measurement),
		clients: make(map[*websocket.Conn]bool),
		log:     log,
	}
}

func (s *WebsocketSink) Name() string { return s.name }

func (s *WebsocketSink) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	s.server = &http.Server{Handler: s.Handler()}
	s.log.Info().Str("address", s.address).Msg("Serving live measurements")
	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("Live API stopped")
		}
	}()
	return nil
}

func (s *WebsocketSink) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)

	// Hijacked connections are not closed by Shutdown
	s.clientsMu.Lock()
	for client := range s.clients {
		client.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
		client.Close()
		delete(s.clients, client)
	}
	s.clientsMu.Unlock()
	return err
}

// Send records the measurement as latest and broadcasts it to all clients.
func (s *WebsocketSink) Send(m types.Measurement) error {
	s.latestMu.Lock()
	s.latest[latestKey{source: m.Source, identifier: m.Type.Identifier}] = m
	s.latestMu.Unlock()

	data := m.ToJsonBytes()
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for client := range s.clients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			s.log.Debug().Err(err).Msg("Dropping websocket client")
			delete(s.clients, client)
			client.Close()
		}
	}
	return nil
}

// Latest returns the newest measurement of every source and type.
func (s *WebsocketSink) Latest() []types.Measurement {
	s.latestMu.RLock()
	out := make([]types.Measurement, 0, len(s.latest))
	for _, m := range s.latest {
		out = append(out, m)
	}
	s.latestMu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Type.Identifier < out[j].Type.Identifier
	})
	return out
}

// Handler serves / (status), /latest (snapshot) and /ws (live stream).
func (s *WebsocketSink) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		response := map[string]string{
			"message": "Smartmeter Datacollector API",
			"status":  "running",
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	})

	mux.HandleFunc("/latest", func(w http.ResponseWriter, r *http.Request) {
		latest := s.Latest()
		w.Header().Set("Content-Type", "application/json")
		if len(latest) == 0 {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{
				"error": "No measurements available yet",
			})
			return
		}
		json.NewEncoder(w).Encode(latest)
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.Warn().Err(err).Msg("WebSocket upgrade failed")
			return
		}
		s.addClient(conn)

		// Keep connection alive
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.removeClient(conn)
				return
			}
		}
	})

	return mux
}

// addClient sends the current snapshot and registers the client for
// broadcasts without a measurement getting lost in between.
func (s *WebsocketSink) addClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for _, m := range s.Latest() {
		if err := conn.WriteMessage(websocket.TextMessage, m.ToJsonBytes()); err != nil {
			conn.Close()
			return
		}
	}
	s.clients[conn] = true
	s.log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("WebSocket client connected")
}

func (s *WebsocketSink) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	delete(s.clients, conn)
	s.clientsMu.Unlock()
	conn.Close()
}
