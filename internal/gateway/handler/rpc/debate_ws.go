package rpc

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"focalai/internal/debate"
	"focalai/internal/gateway/entity"
	"focalai/internal/gateway/service/refinement"
)

// DebateSource is the part of refinement.Service the stream reads from.
type DebateSource interface {
	Events() *refinement.Broadcaster
	Authorize(ctx context.Context, userID, ideaID string) (entity.UserID, error)
}

var _ DebateSource = (*refinement.Service)(nil)

// DebateHandler streams live debate entries for one idea to its owner.
type DebateHandler struct {
	source DebateSource
}

func NewDebateHandler(source DebateSource) *DebateHandler {
	return &DebateHandler{source: source}
}

const (
	debateWSWriteWait = 10 * time.Second
	debateWSPongWait  = 60 * time.Second
	debateWSPingEvery = (debateWSPongWait * 9) / 10
)

var debateWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type debateWSInbound struct {
	Type string `json:"type"`
}

type debateWSOutbound struct {
	Type       string        `json:"type"`
	IdeaID     string        `json:"ideaId,omitempty"`
	Iteration  int           `json:"iteration,omitempty"`
	Entry      *debate.Entry `json:"entry,omitempty"`
	DocumentID string        `json:"documentId,omitempty"`
	Code       string        `json:"code,omitempty"`
	Message    string        `json:"message,omitempty"`
}

func (h *DebateHandler) HandleDebateWS(w http.ResponseWriter, r *http.Request) {
	ideaID := strings.TrimSpace(r.URL.Query().Get("idea_id"))
	if ideaID == "" {
		http.Error(w, "idea_id is required", http.StatusBadRequest)
		return
	}
	user, err := h.source.Authorize(r.Context(), r.URL.Query().Get("user_id"), ideaID)
	if err != nil {
		http.Error(w, err.Error(), watchStatus(err))
		return
	}

	conn, err := debateWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(debateWSPongWait)); err != nil {
		log.Printf("debate ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(debateWSPongWait))
	})

	writeCh := make(chan debateWSOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(debateWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(debateWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(debateWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	subCh, unsubscribe := h.source.Events().Subscribe(ideaID)
	defer unsubscribe()

	pushDebateWS(writeCh, debateWSOutbound{
		Type:   "subscribed",
		IdeaID: ideaID,
	})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-subCh:
				if !ok {
					return
				}
				if ev.UserID != user.String() {
					continue
				}
				pushDebateWS(writeCh, debateWSOutbound{
					Type:       string(ev.Type),
					IdeaID:     ev.IdeaID,
					Iteration:  ev.Iteration,
					Entry:      ev.Entry,
					DocumentID: ev.DocumentID,
					Message:    ev.Error,
				})
			}
		}
	}()

	for {
		var in debateWSInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}
		switch msgType := strings.ToLower(strings.TrimSpace(in.Type)); msgType {
		case "ping":
			pushDebateWS(writeCh, debateWSOutbound{Type: "pong"})
		case "":
			pushDebateWS(writeCh, debateWSOutbound{
				Type:    "error",
				Code:    "invalid_argument",
				Message: "type is required",
			})
		default:
			pushDebateWS(writeCh, debateWSOutbound{
				Type:    "error",
				Code:    "invalid_argument",
				Message: "unsupported type: " + msgType,
			})
		}
	}
}

func watchStatus(err error) int {
	switch {
	case errors.Is(err, refinement.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func pushDebateWS(writeCh chan debateWSOutbound, out debateWSOutbound) {
	if writeCh == nil {
		return
	}
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
