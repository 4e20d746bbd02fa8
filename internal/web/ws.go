package web

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/fernwey/atlas-travel-agent/internal/events"
	"github.com/fernwey/atlas-travel-agent/internal/wire"
)

// Error-frame texts. Errors never close the connection; the client
// shows the text as a passing notice and chats on.
const (
	apologyReply     = "抱歉，处理您的请求时遇到了问题，请稍后再试。"
	malformedReply   = "抱歉，我没有看懂这条消息，请重新发送。"
	emptyReply       = "请输入您的旅行需求，我来帮您安排。"
	unknownKindReply = "抱歉，我无法处理这类消息。"
)

// handleWS upgrades the connection and runs the chat loop. One
// goroutine per connection; messages on a connection are answered in
// order. The conversation id is assigned here, so transcripts group
// by connection.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	conversationID := "conv_" + uuid.NewString()
	s.conns.Add(1)
	s.pipeline.publish(events.KindConnect, map[string]any{"conversation_id": conversationID})
	s.logger.Info("client connected", "conversation_id", conversationID, "remote", r.RemoteAddr)
	defer func() {
		s.conns.Add(-1)
		s.pipeline.publish(events.KindDisconnect, map[string]any{"conversation_id": conversationID})
		s.logger.Info("client disconnected", "conversation_id", conversationID)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived) {
				s.logger.Debug("websocket read failed", "conversation_id", conversationID, "error", err)
			}
			return
		}

		frame, err := wire.Decode(data)
		if err != nil {
			s.logger.Debug("dropping malformed frame", "conversation_id", conversationID, "error", err)
			if s.writeFrame(conn, wire.NewError(malformedReply)) != nil {
				return
			}
			continue
		}

		if frame.Type != wire.TypeMessage {
			if s.writeFrame(conn, wire.NewError(unknownKindReply)) != nil {
				return
			}
			continue
		}
		if frame.Empty() {
			if s.writeFrame(conn, wire.NewError(emptyReply)) != nil {
				return
			}
			continue
		}

		s.messages.Add(1)
		reply, err := s.pipeline.Respond(r.Context(), conversationID, frame.Content, func(note string) {
			// Best effort; a failed status write surfaces on the next write.
			_ = s.writeFrame(conn, wire.NewStatus(note))
		})
		if err != nil {
			s.failures.Add(1)
			s.logger.Error("message handling failed", "conversation_id", conversationID, "error", err)
			if s.writeFrame(conn, wire.NewError(apologyReply)) != nil {
				return
			}
			continue
		}
		if reply.PlanID != "" {
			s.plansBuilt.Add(1)
		}

		if s.writeFrame(conn, wire.NewResponse(reply.Text)) != nil {
			return
		}
	}
}

func (s *Server) writeFrame(conn *websocket.Conn, f wire.Frame) error {
	data, err := f.Encode()
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Debug("websocket write failed", "error", err)
		return err
	}
	return nil
}
