package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"studynotes/internal/events"
	"studynotes/internal/services"
	"studynotes/internal/transport/httpdto"
	"studynotes/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// liveCollections are forwarded to every live feed connection.
var liveCollections = []events.Collection{events.CollectionContentItems, events.CollectionEngagement}

// Handler streams change events to authenticated websocket clients. Each
// connection registers one observer per collection and removes them when the
// connection closes.
type Handler struct {
	observer events.Observer
	courses  services.CourseIDResolver
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func NewHandler(observer events.Observer, courses services.CourseIDResolver, log *logger.Logger, origins []string) *Handler {
	return &Handler{
		observer: observer,
		courses:  courses,
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: originChecker(origins)},
	}
}

// Live upgrades GET /v1/feed/live. An optional course query parameter limits
// the stream to that course code.
func (h *Handler) Live(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	var courseIDs []uuid.UUID
	if code := strings.TrimSpace(c.Query("course")); code != "" {
		ids, err := h.courses.Tolerant(c.Request.Context(), code)
		if err != nil {
			c.JSON(httpdto.ErrorResponseFor(err))
			return
		}
		courseIDs = ids
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithContext(c.Request.Context()).Warn("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(conn, userID, courseIDs)
	log := h.log.WithContext(c.Request.Context()).With("client_id", client.ID)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	subs := make([]events.Subscription, 0, len(liveCollections))
	for _, collection := range liveCollections {
		subs = append(subs, h.observer.Subscribe(collection, func(event events.ChangeEvent) {
			if !client.Wants(event.CourseID) {
				return
			}
			msg, err := json.Marshal(toChangeMessage(event))
			if err != nil {
				return
			}
			client.SendMessage(msg)
		}))
	}
	defer func() {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
		log.Info("live feed closed", "dropped", client.Dropped())
	}()

	go client.WriteLoop(ctx)
	log.Info("live feed opened")

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

func toChangeMessage(event events.ChangeEvent) httpdto.ChangeMessage {
	msg := httpdto.ChangeMessage{
		Collection: string(event.Collection),
		Op:         string(event.Op),
		RecordID:   event.RecordID.String(),
		OccurredAt: event.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
	if event.ActorID != uuid.Nil {
		msg.ActorID = event.ActorID.String()
	}
	if event.CourseID.Valid {
		msg.CourseID = event.CourseID.UUID.String()
	}
	return msg
}

func originChecker(origins []string) func(*http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
