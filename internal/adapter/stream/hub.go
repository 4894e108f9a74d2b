package stream

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tilefarm/internal/app/ports"
)

const (
	outBuffer    = 64
	writeTimeout = 5 * time.Second
	readTimeout  = 60 * time.Second
)

// Verifier checks a player's key before the socket is upgraded.
type Verifier func(ctx context.Context, playerID, playerKey string) error

// Hub fans game notices out to every websocket the player has open. A slow
// client loses messages rather than stalling the game.
type Hub struct {
	log    *log.Logger
	verify Verifier

	upgrader websocket.Upgrader

	mu      sync.RWMutex
	subs    map[string]map[string]chan []byte
	dropped atomic.Uint64
}

func NewHub(logger *log.Logger, verify Verifier) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		log:    logger,
		verify: verify,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		subs: make(map[string]map[string]chan []byte),
	}
}

func (h *Hub) Publish(n ports.Notice) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	subs := h.subs[n.PlayerID]
	if len(subs) == 0 {
		return
	}
	b, err := json.Marshal(n)
	if err != nil {
		h.log.Printf("stream: marshal %s notice: %v", n.Kind, err)
		return
	}
	for _, out := range subs {
		select {
		case out <- b:
		default:
			h.dropped.Add(1)
		}
	}
}

func (h *Hub) Subscribers(playerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[playerID])
}

func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

func (h *Hub) subscribe(playerID string) (string, chan []byte) {
	id := uuid.NewString()
	out := make(chan []byte, outBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[playerID] == nil {
		h.subs[playerID] = make(map[string]chan []byte)
	}
	h.subs[playerID][id] = out
	return id, out
}

func (h *Hub) unsubscribe(playerID, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[playerID], id)
	if len(h.subs[playerID]) == 0 {
		delete(h.subs, playerID)
	}
}

// Handler upgrades GET /stream?player_id=..&player_key=.. and streams
// notices until the client goes away.
func (h *Hub) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		playerID := strings.TrimSpace(r.URL.Query().Get("player_id"))
		playerKey := strings.TrimSpace(r.URL.Query().Get("player_key"))
		if playerID == "" {
			http.Error(rw, "player_id is required", http.StatusBadRequest)
			return
		}
		if h.verify != nil {
			if err := h.verify(r.Context(), playerID, playerKey); err != nil {
				http.Error(rw, "invalid player credentials", http.StatusUnauthorized)
				return
			}
		}

		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sid, out := h.subscribe(playerID)
		defer h.unsubscribe(playerID, sid)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Client messages are ignored; reading keeps pings and close frames flowing.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}
