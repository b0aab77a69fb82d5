package live

import (
	"net/http"

	gorillaWS "github.com/gorilla/websocket"

	"github.com/AlibekovAA/recordkeeper/internal/common/constants"
	commonhttp "github.com/AlibekovAA/recordkeeper/internal/common/http"
	"github.com/AlibekovAA/recordkeeper/internal/common/jwtverify"
	"github.com/AlibekovAA/recordkeeper/internal/common/logger"
)

// Handler upgrades authenticated requests and subscribes them to the hub. It
// expects jwtverify.Middleware in front of it.
type Handler struct {
	hub      *Hub
	upgrader gorillaWS.Upgrader
	log      *logger.Logger
}

func NewHandler(hub *Hub, log *logger.Logger) *Handler {
	return &Handler{
		hub: hub,
		upgrader: gorillaWS.Upgrader{
			ReadBufferSize:  constants.LiveReadBufferSize,
			WriteBufferSize: constants.LiveWriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				host := r.Host
				if host == "" {
					host = r.URL.Host
				}
				return origin == "http://"+host || origin == "https://"+host
			},
		},
		log: log,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		commonhttp.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	claims, ok := jwtverify.FromContext(r.Context())
	if !ok {
		commonhttp.NewErrorHandler(h.log).HandleError(w, r, jwtverify.ErrNoToken)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithFields(r.Context(), logger.Fields{
			"user_id": claims.UserID,
			"action":  "live_upgrade_failed",
		}).Warnf("live feed upgrade failed: %v", err)
		return
	}

	client := NewClient(r.Context(), h.hub, conn, claims.UserID, h.log)
	if !h.hub.Register(client) {
		_ = conn.WriteMessage(gorillaWS.CloseMessage, gorillaWS.FormatCloseMessage(gorillaWS.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}
	client.Start()
}
