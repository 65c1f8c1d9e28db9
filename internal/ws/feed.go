// Package ws pushes live charger and controller status to dashboard clients
// over a WebSocket, so the UI does not poll the REST API.
package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chargehub/internal/authz"
	"chargehub/internal/http/middleware"
	"chargehub/internal/models"
	"chargehub/internal/repository"
	"chargehub/internal/service"
)

const (
	pushInterval = 5 * time.Second
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
)

// ChargerSnapshot is one charger's entry in a status push.
type ChargerSnapshot struct {
	ChargerID               int64  `json:"charger_id"`
	Name                    string `json:"name"`
	Status                  string `json:"status"`
	ControllerCount         int64  `json:"controller_count"`
	DisconnectedControllers int64  `json:"disconnected_controllers"`
}

// StatusMessage is the frame sent to every connected client.
type StatusMessage struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Chargers    []ChargerSnapshot `json:"chargers"`
}

// StatusFeed serves GET /api/ws/status. Each connection gets a snapshot on
// connect and then one per push interval, filtered to the client's scope.
type StatusFeed struct {
	chargers    *repository.ChargerRepository
	controllers *repository.ControllerRepository
	logger      *zap.Logger
	upgrader    websocket.Upgrader
}

// NewStatusFeed builds feed.
func NewStatusFeed(chargers *repository.ChargerRepository, controllers *repository.ControllerRepository, logger *zap.Logger) *StatusFeed {
	return &StatusFeed{
		chargers:    chargers,
		controllers: controllers,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Handle upgrades the request and starts the push loop. The session
// middleware has already resolved the scope.
func (f *StatusFeed) Handle(w http.ResponseWriter, r *http.Request) {
	scope, ok := middleware.ScopeFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	go f.readPump(conn, cancel)
	f.writePump(ctx, conn, scope)
}

// readPump discards client frames and keeps the pong deadline fresh. Clients
// never send application data; the read loop exists to detect closure.
func (f *StatusFeed) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (f *StatusFeed) writePump(ctx context.Context, conn *websocket.Conn, scope authz.Scope) {
	defer conn.Close()

	ticker := time.NewTicker(pushInterval)
	defer ticker.Stop()

	if err := f.push(ctx, conn, scope); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeTimeout))
			return
		case <-ticker.C:
			if err := f.push(ctx, conn, scope); err != nil {
				return
			}
		}
	}
}

func (f *StatusFeed) push(ctx context.Context, conn *websocket.Conn, scope authz.Scope) error {
	message, err := f.snapshot(ctx, scope)
	if err != nil {
		f.logger.Error("building status snapshot failed", zap.Error(err))
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(message)
}

func (f *StatusFeed) snapshot(ctx context.Context, scope authz.Scope) (*StatusMessage, error) {
	chargers, err := f.chargers.List(ctx, scope)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	message := &StatusMessage{
		GeneratedAt: now,
		Chargers:    make([]ChargerSnapshot, 0, len(chargers)),
	}
	for _, charger := range chargers {
		snapshot, err := f.chargerSnapshot(ctx, &charger, now)
		if err != nil {
			return nil, err
		}
		message.Chargers = append(message.Chargers, *snapshot)
	}
	return message, nil
}

func (f *StatusFeed) chargerSnapshot(ctx context.Context, charger *models.Charger, now time.Time) (*ChargerSnapshot, error) {
	total, disconnected, err := f.controllers.CountByCharger(ctx, charger.ID)
	if err != nil {
		return nil, err
	}
	return &ChargerSnapshot{
		ChargerID:               charger.ID,
		Name:                    charger.Name,
		Status:                  service.ChargerStatus(charger.LastConnected, now),
		ControllerCount:         total,
		DisconnectedControllers: disconnected,
	}, nil
}
