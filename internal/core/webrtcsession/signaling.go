package webrtcsession

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zmstream/streamcore/internal/core"
	"github.com/zmstream/streamcore/internal/logger"
)

// signalMessage is the wire shape of every frame on /webrtc/{id}, both
// directions: offer/answer carry sdp, ice carries candidate+mid+mlineIndex,
// error carries message, bye carries nothing else.
type signalMessage struct {
	Type          string  `json:"type"`
	SDP           string  `json:"sdp,omitempty"`
	Candidate     string  `json:"candidate,omitempty"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
	Message       string  `json:"message,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeSignaling upgrades an HTTP request to a WebSocket and runs the
// offer/answer/ice signaling loop for one viewer against one monitor. It
// blocks until the connection closes.
func ServeSignaling(w http.ResponseWriter, r *http.Request, viewerID string, monitorID core.MonitorID, manager *Manager, withAudio bool, log *logger.Logger) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.DebugWebRTC("websocket upgrade failed", "monitor_id", monitorID, "viewer_id", viewerID, "error", err)
		return
	}
	defer conn.Close()

	out := make(chan signalMessage, 16)
	done := make(chan struct{})

	go writerLoop(conn, out, done)
	defer close(done)

	ctx := r.Context()
	var sess *Session

	defer func() {
		if sess != nil {
			manager.CloseSession(viewerID)
		}
	}()

	for {
		var msg signalMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "offer":
			if sess == nil {
				sess, err = manager.CreateSession(ctx, viewerID, monitorID, withAudio)
				if err != nil {
					sendError(out, err.Error())
					return
				}
			}
			answerSDP, err := sess.ProcessOffer(msg.SDP)
			if err != nil {
				sendError(out, err.Error())
				continue
			}
			out <- signalMessage{Type: "answer", SDP: answerSDP}

		case "ice":
			if sess == nil {
				continue
			}
			if err := sess.AddICECandidate(msg.Candidate, msg.SDPMid, msg.SDPMLineIndex); err != nil {
				log.DebugWebRTC("add ice candidate failed", "monitor_id", monitorID, "viewer_id", viewerID, "error", err)
			}

		case "bye":
			return
		}
	}
}

func sendError(out chan<- signalMessage, message string) {
	select {
	case out <- signalMessage{Type: "error", Message: message}:
	default:
	}
}

// writerLoop is the single writer goroutine a gorilla/websocket connection
// requires; every outbound frame (answer, trickled ICE, error) funnels
// through the out channel instead of writing directly from reader or
// forwarder goroutines.
func writerLoop(conn *websocket.Conn, out <-chan signalMessage, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case msg := <-out:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
			if msg.Type == "error" {
				return
			}
		}
	}
}
