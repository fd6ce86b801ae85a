package live

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	readLimit  = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// SnapshotFunc loads the current contents of a collection.
type SnapshotFunc func(r *http.Request) (interface{}, error)

// Serve upgrades the request and streams collection to the client until
// either side goes away. It subscribes before loading the snapshot so no
// write between the two is lost; a change may therefore be seen twice.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, collection string, snapshot SnapshotFunc) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sub := h.Subscribe(collection)
	defer sub.Close()

	docs, err := snapshot(r)
	if err != nil {
		h.log.Error("failed to load snapshot", zap.String("collection", collection), zap.Error(err))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "snapshot failed"),
			time.Now().Add(writeWait))
		return
	}
	first, err := h.Encode(Event{Type: EventSnapshot, Collection: collection, Docs: docs})
	if err != nil {
		h.log.Error("failed to encode snapshot", zap.Error(err))
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, first); err != nil {
		return
	}

	// read pump: only here to notice the peer leaving and to answer pings
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		conn.SetReadLimit(readLimit)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-sub.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// dropped by the hub
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too slow"))
				conn.Close()
				<-readDone
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				conn.Close()
				<-readDone
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				<-readDone
				return
			}
		case <-readDone:
			return
		}
	}
}
