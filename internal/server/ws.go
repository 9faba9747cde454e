package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vetsupport/companion/pkg/types"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 50 * time.Second
	wsMaxMessage = 8 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API binds to loopback; the socket trusts whoever can reach it.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsInbound is one client message on the chat socket.
type wsInbound struct {
	userPayload
	Message string `json:"message"`
	IsVoice bool   `json:"is_voice,omitempty"`
}

// wsOutbound is one server reply on the chat socket.
type wsOutbound struct {
	Response     string             `json:"response,omitempty"`
	ProviderUsed string             `json:"provider_used,omitempty"`
	Crisis       types.CrisisSignal `json:"crisis"`
	Error        string             `json:"error,omitempty"`
}

// handleChatSocket upgrades to a websocket and runs chat turns until the
// client hangs up. Each inbound frame is one full turn.
func (s *Server) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Err(err, "websocket upgrade")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsMaxMessage)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	// gorilla permits one concurrent writer per connection; the mutex
	// serializes replies with the ping loop.
	var writeMu sync.Mutex

	done := make(chan struct{})
	defer close(done)
	go s.pingLoop(conn, &writeMu, done)

	for {
		var inbound wsInbound
		if err := conn.ReadJSON(&inbound); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Err(err, "websocket read")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(wsPongWait))

		outbound := s.chatTurn(r, inbound)

		writeMu.Lock()
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		err := conn.WriteJSON(outbound)
		writeMu.Unlock()
		if err != nil {
			s.log.Err(err, "websocket write")
			return
		}
	}
}

func (s *Server) chatTurn(r *http.Request, inbound wsInbound) wsOutbound {
	if inbound.Message == "" {
		return wsOutbound{Error: "message cannot be empty"}
	}

	user, err := s.resolveUser(r, inbound.userPayload)
	if err != nil {
		return wsOutbound{Error: err.Error()}
	}

	exchange, err := s.chats.Handle(r.Context(), user, inbound.Message, inbound.IsVoice)
	if err != nil {
		s.log.Err(err, "websocket chat turn")
		return wsOutbound{Error: "failed to process message"}
	}

	return wsOutbound{
		Response:     exchange.Response,
		ProviderUsed: exchange.ProviderUsed,
		Crisis:       exchange.Crisis,
	}
}

func (s *Server) pingLoop(conn *websocket.Conn, writeMu *sync.Mutex, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			writeMu.Unlock()
			if err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
