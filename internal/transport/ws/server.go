package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"gridstead/internal/protocol"
	"gridstead/internal/sim/world"
)

type Server struct {
	world *world.World
	log   *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	s := &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		clientID, out, ok := s.handshake(conn)
		if !ok {
			// A join may have been applied before the handshake write
			// failed; tell the world so it stops broadcasting to us.
			if clientID != "" {
				s.world.Leave() <- clientID
			}
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}
			if base.Type != protocol.TypeCmd {
				continue
			}
			var cm protocol.CmdMsg
			if err := json.Unmarshal(msg, &cm); err != nil {
				continue
			}
			if cm.ProtocolVersion != protocol.Version {
				continue
			}
			for _, cmd := range cm.Commands {
				s.world.Inbox() <- world.CommandEnvelope{ClientID: clientID, Cmd: cmd}
			}
		}

		// Cleanup.
		s.world.Leave() <- clientID
	}
}

func (s *Server) handshake(conn *websocket.Conn) (clientID string, out chan []byte, ok bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", nil, false
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil, false
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", nil, false
	}
	if hello.ClientName == "" {
		hello.ClientName = "client"
	}

	out = make(chan []byte, 16)

	// Optional: resume an existing session (reconnect).
	resumeToken := strings.TrimSpace(hello.ResumeToken)
	if resumeToken == "" && hello.Auth != nil {
		resumeToken = strings.TrimSpace(hello.Auth.Token)
	}

	respCh := make(chan world.JoinResponse, 1)
	s.world.Join() <- world.JoinRequest{
		Name:        hello.ClientName,
		ResumeToken: resumeToken,
		Out:         out,
		Resp:        respCh,
	}
	resp := <-respCh
	if resp.Welcome.ClientID == "" {
		return "", nil, false
	}

	// Send welcome + catalogs immediately. The join is already applied, so
	// any failure past this point must report the client id for cleanup.
	if err := writeJSON(conn, resp.Welcome); err != nil {
		return resp.Welcome.ClientID, nil, false
	}
	for _, c := range resp.Catalogs {
		if err := writeJSON(conn, c); err != nil {
			return resp.Welcome.ClientID, nil, false
		}
	}

	return resp.Welcome.ClientID, out, true
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
