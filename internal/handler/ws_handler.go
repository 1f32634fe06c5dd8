/*
Package handler provides the HTTP handler for WebSocket connection upgrading.

This file contains the HandleWebSocket function: per-IP rate limiting, the
upgrade itself, and starting the session's read and write pumps. Authentication
happens afterwards over the socket via the auth envelope.
*/
package handler

import (
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"rainchat/internal/app/chat"
	"rainchat/internal/pkg/errs"
	"rainchat/internal/pkg/limiter"
	"rainchat/internal/pkg/logx"
	"rainchat/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if ip == "" {
			ip = "unknown_ip"
		}

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		session := chat.NewSession(deps.Hub, conn)

		go session.WritePump()

		deps.Hub.Register(session)

		logx.Info("WebSocket connection established", "session_id", session.ID())

		session.ReadPump()
	}
}
