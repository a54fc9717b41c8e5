package dashboard

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/sitemermaid/internal/store"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// update is the outgoing websocket message, one per store change.
type update struct {
	Type    string      `json:"type"`
	Version uint64      `json:"version"`
	State   store.State `json:"state"`
}

const writeWait = 10 * time.Second

// handleWebSocket pushes the current diagram on connect and after every
// store change until the client goes away.
func (d *Dashboard) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.logger.Warn("websocket upgrade", "error", err)
		return
	}
	defer conn.Close()

	// Latest state wins; the listener must never block the store.
	updates := make(chan update, 1)
	unsubscribe := d.diagrams.Subscribe(func(st store.State, version uint64) {
		msg := update{Type: "diagram", Version: version, State: st}
		for {
			select {
			case updates <- msg:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					d.logger.Debug("websocket read", "error", err)
				}
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case msg := <-updates:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				d.logger.Debug("websocket write", "error", err)
				return
			}
		}
	}
}
