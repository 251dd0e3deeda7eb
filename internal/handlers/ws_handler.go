package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/siddhantsaxena45/AI-Interviewer/internal/metrics"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/models"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/realtime"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// WSHandler serves the push channel. Each connection joins the room of the
// user named by its token.
type WSHandler struct {
	hub       *realtime.Hub
	jwtSecret string
	upgrader  websocket.Upgrader
	logger    *zap.Logger
}

func NewWSHandler(hub *realtime.Hub, jwtSecret string, allowedOrigins []string, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		hub:       hub,
		jwtSecret: jwtSecret,
		upgrader:  websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)},
		logger:    logger,
	}
}

// originChecker allows requests without an Origin header and those from the
// configured origins. An empty list or "*" allows everything.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || len(set) == 0 || set[origin]
	}
}

func (h *WSHandler) SubscribeHandler(w http.ResponseWriter, r *http.Request) {
	// browsers cannot set headers on an upgrade, so ?token= is accepted too
	tokenStr, err := utils.BearerToken(r)
	if err != nil {
		tokenStr = strings.TrimSpace(r.URL.Query().Get("token"))
	}
	if tokenStr == "" {
		utils.JSONError(w, http.StatusUnauthorized, "unauthorized", "Not authorized, no token")
		return
	}
	claims, err := utils.ParseToken(tokenStr, h.jwtSecret)
	if err != nil {
		utils.JSONError(w, http.StatusUnauthorized, "unauthorized", "Not authorized, token failed")
		return
	}
	userID, err := utils.GetUserIDFromClaims(claims)
	if err != nil {
		utils.JSONError(w, http.StatusUnauthorized, "unauthorized", "Not authorized, token failed")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		return
	}
	defer conn.Close()

	client := realtime.NewClient(conn, userID)
	h.hub.Join(client)
	metrics.WSConnected()
	h.logger.Info("Websocket subscribed", zap.String("userId", userID))
	defer func() {
		h.hub.Leave(client)
		metrics.WSDisconnected()
		h.logger.Info("Websocket closed", zap.String("userId", userID))
	}()

	if err := client.Send(models.WSFrame{Event: "connected"}); err != nil {
		return
	}

	done := make(chan struct{})
	defer close(done)
	go keepAlive(conn, done)

	// the channel is push only, reads just detect the close
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// keepAlive pings until done is closed. WriteControl may run alongside the
// client's data writes.
func keepAlive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
