package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"learningassistant"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 4 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// chatIn is a learner message. An empty message asks for suggested questions.
type chatIn struct {
	Message string `json:"message"`
}

type chatOut struct {
	Type      string   `json:"type"` // presets, chunk, done, error
	Content   string   `json:"content,omitempty"`
	Questions []string `json:"questions,omitempty"`
}

// handleChat streams tutor replies about the current question over a
// websocket. Chat opens only once the question has been answered.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.tutor == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "assistant not configured"})
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := s.sittings.Get(id); err != nil {
		writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade chat connection: %v", err)
		return
	}
	defer conn.Close()

	var (
		history    []learningassistant.ChatMessage
		questionID string
	)
	for {
		var in chatIn
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Chat read error for sitting %s: %v", id, err)
			}
			return
		}

		q, lang, err := s.chatQuestion(id)
		if err != nil {
			if werr := conn.WriteJSON(chatOut{Type: "error", Content: err.Error()}); werr != nil {
				return
			}
			continue
		}
		if q.ID != questionID {
			history = nil
			questionID = q.ID
		}

		if in.Message == "" {
			presets, err := s.tutor.PresetQuestions(r.Context(), q, lang)
			out := chatOut{Type: "presets", Questions: presets}
			if err != nil {
				log.Printf("Failed to get preset questions: %v", err)
				out = chatOut{Type: "error", Content: err.Error()}
			}
			if err := conn.WriteJSON(out); err != nil {
				return
			}
			continue
		}

		history = append(history, learningassistant.ChatMessage{Role: "user", Content: in.Message})
		reply, err := s.streamExplanation(r.Context(), conn, q, history)
		if err != nil {
			log.Printf("Chat stream for sitting %s failed: %v", id, err)
			if werr := conn.WriteJSON(chatOut{Type: "error", Content: err.Error()}); werr != nil {
				return
			}
			history = history[:len(history)-1]
			continue
		}
		history = append(history, learningassistant.ChatMessage{Role: "assistant", Content: reply})
	}
}

// chatQuestion returns the current question if it has been graded.
func (s *Server) chatQuestion(id string) (learningassistant.Question, learningassistant.Language, error) {
	var (
		q    learningassistant.Question
		lang learningassistant.Language
	)
	err := s.sittings.Do(id, func(st *learningassistant.Sitting) error {
		current, ok := st.Session.CurrentQuestion()
		if !ok {
			return learningassistant.ErrSessionComplete
		}
		if _, graded := st.Session.Outcome(st.Session.Cursor()); !graded {
			return learningassistant.ErrNotYetGraded
		}
		q = current
		lang = st.Language
		return nil
	})
	return q, lang, err
}

func (s *Server) streamExplanation(ctx context.Context, conn *websocket.Conn, q learningassistant.Question, history []learningassistant.ChatMessage) (string, error) {
	stream, err := s.tutor.Explain(ctx, q, history)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var reply []byte
	for {
		chunk, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		reply = append(reply, chunk...)
		if err := conn.WriteJSON(chatOut{Type: "chunk", Content: chunk}); err != nil {
			return "", err
		}
	}
	return string(reply), conn.WriteJSON(chatOut{Type: "done"})
}
