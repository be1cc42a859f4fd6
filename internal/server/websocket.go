package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/michaelbrown/envop/internal/environ"
	"github.com/michaelbrown/envop/internal/operator"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the API is meant for a trusted network
	},
}

// wsIncoming is a message from the client.
type wsIncoming struct {
	Type           string  `json:"type"`
	Command        string  `json:"command"`
	TimeoutSeconds float64 `json:"timeout_seconds"`
}

// wsOutgoing is a message to the client.
type wsOutgoing struct {
	Type     string `json:"type"`
	Content  string `json:"content,omitempty"`
	Command  string `json:"command,omitempty"`
	ExitCode *int   `json:"exit_code,omitempty"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
	TimedOut bool   `json:"timed_out,omitempty"`
}

// handleShell runs one command per "run" message, in order, and answers each
// with a "result" or "error" message.
func (s *Server) handleShell(w http.ResponseWriter, r *http.Request) {
	env, ok := s.environment(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// Cancelled when the client goes away so a running command is abandoned.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages := make(chan wsIncoming)
	go func() {
		defer cancel()
		defer close(messages)
		for {
			var msg wsIncoming
			if err := conn.ReadJSON(&msg); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logrus.WithError(err).Debug("websocket read error")
				}
				return
			}
			select {
			case messages <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	for msg := range messages {
		if msg.Type != "run" || msg.Command == "" {
			wsWriteJSON(conn, wsOutgoing{Type: "error", Content: "invalid message"})
			continue
		}
		wsWriteJSON(conn, runShellCommand(ctx, env, msg))
	}
}

func runShellCommand(ctx context.Context, env *environ.Environment, msg wsIncoming) wsOutgoing {
	timeout := env.Timeout(time.Duration(msg.TimeoutSeconds * float64(time.Second)))
	res, err := env.Operator.RunCommand(ctx, msg.Command, timeout)
	if err != nil {
		return wsOutgoing{
			Type:     "error",
			Command:  msg.Command,
			Content:  err.Error(),
			TimedOut: errors.Is(err, operator.ErrTimeout),
		}
	}
	return wsOutgoing{
		Type:     "result",
		Command:  msg.Command,
		ExitCode: &res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
	}
}

func wsWriteJSON(conn *websocket.Conn, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logrus.WithError(err).Warn("websocket marshal error")
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		logrus.WithError(err).Debug("websocket write error")
	}
}
