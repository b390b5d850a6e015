package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/mcoot/partycoord/internal/gateway"
	"github.com/mcoot/partycoord/internal/model"
)

const sessionHelp = `Once joined, server events are streamed as they arrive.

Commands read from stdin, one per line:
  start  start the game (host only)
  leave  leave the party and disconnect

Press Ctrl+C to disconnect, which also leaves the party.`

func newCreateCmd() *cobra.Command {
	var name, adminPassword string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a party and stay connected as its host",
		Long:  "Create a party over WebSocket and stay connected as its host.\n\n" + sessionHelp,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, gateway.EventCreateParty, gateway.CreatePartyPayload{
				Name:          name,
				AdminPassword: adminPassword,
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name (required)")
	cmd.Flags().StringVar(&adminPassword, "admin-password", os.Getenv("PARTYCTL_ADMIN_PASSWORD"), "Admin password (env: PARTYCTL_ADMIN_PASSWORD)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newJoinCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "join <code>",
		Short: "Join a party by its code and stay connected",
		Long:  "Join a party over WebSocket and stay connected as a player.\n\n" + sessionHelp,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, gateway.EventJoinParty, gateway.JoinPartyPayload{
				PartyCode: args[0],
				Name:      name,
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runSession(cmd *cobra.Command, event string, payload any) error {
	wsURL, err := cfg.WebSocketURL()
	if err != nil {
		return err
	}

	// Disconnect on interrupt
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := newOutput(cmd)
	session, err := DialSession(ctx, wsURL, out)
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.Enter(event, payload); err != nil {
		return err
	}
	return session.Run(ctx, cmd.InOrStdin())
}

// Session is a live party membership held open over WebSocket
type Session struct {
	conn *websocket.Conn
	out  *Output

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// DialSession connects to the party WebSocket endpoint
func DialSession(ctx context.Context, wsURL string, out *Output) (*Session, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("connection failed: %w", err)
	}
	return &Session{conn: conn, out: out}, nil
}

// Send writes a single frame to the server
func (s *Session) Send(event string, payload any) error {
	data, err := gateway.EncodeFrame(event, payload)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send %s: %w", event, err)
	}
	return nil
}

// Enter sends a create_party or join_party frame and waits for the server to
// answer it. An error frame in reply is returned as an error.
func (s *Session) Enter(event string, payload any) error {
	if err := s.Send(event, payload); err != nil {
		return err
	}

	frame, err := s.next()
	if err != nil {
		return err
	}
	s.out.PrintEvent(frame)

	switch model.EventType(frame.Event) {
	case model.EventPartyJoined:
		return nil
	case model.EventError:
		var payload gateway.ErrorPayload
		_ = gateway.DecodePayload(frame, &payload)
		return errors.New(payload.Message)
	default:
		return fmt.Errorf("unexpected %s event before joining", frame.Event)
	}
}

// Run streams server events until ctx is cancelled, the user leaves or the
// server closes the connection. Lines read from in are session commands.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	readErr := make(chan error, 1)
	go func() {
		for {
			frame, err := s.next()
			if err != nil {
				readErr <- err
				return
			}
			s.out.PrintEvent(frame)
		}
	}()

	left := make(chan struct{})
	go s.readCommands(in, left)

	select {
	case <-ctx.Done():
		s.out.PrintMessage("Disconnected")
		return nil
	case <-left:
		s.out.PrintMessage("Left the party")
		return nil
	case err := <-readErr:
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			s.out.PrintMessage("Server closed the connection")
			return nil
		}
		return fmt.Errorf("stream error: %w", err)
	}
}

// Close says goodbye to the server and releases the connection
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = s.conn.Close()
	})
}

func (s *Session) next() (gateway.Frame, error) {
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return gateway.Frame{}, err
	}
	frame, err := gateway.DecodeFrame(data)
	if err != nil {
		return gateway.Frame{}, fmt.Errorf("bad frame from server: %w", err)
	}
	return frame, nil
}

// readCommands forwards stdin commands until the user leaves. EOF keeps the
// session open so output can still be streamed.
func (s *Session) readCommands(in io.Reader, left chan<- struct{}) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "":
		case "start":
			if err := s.Send(gateway.EventStartGame, struct{}{}); err != nil {
				s.out.PrintError(err)
			}
		case "leave":
			if err := s.Send(gateway.EventLeaveParty, struct{}{}); err != nil {
				s.out.PrintError(err)
			}
			close(left)
			return
		default:
			s.out.PrintError(fmt.Errorf("unknown command %q (try start or leave)", scanner.Text()))
		}
	}
}
