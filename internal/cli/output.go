package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mcoot/partycoord/internal/api/response"
	"github.com/mcoot/partycoord/internal/gateway"
	"github.com/mcoot/partycoord/internal/model"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	out    io.Writer
	errOut io.Writer
	now    func() time.Time
}

// NewOutput creates a new Output formatter writing results to out and errors to errOut
func NewOutput(format string, out, errOut io.Writer) *Output {
	return &Output{format: format, out: out, errOut: errOut, now: time.Now}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		_, _ = fmt.Fprintln(o.errOut, string(data))
	} else {
		_, _ = fmt.Fprintf(o.errOut, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.out, string(data))
	} else {
		_, _ = fmt.Fprintln(o.out, msg)
	}
}

// SessionEvent is one frame received over a party session, as printed in json mode
type SessionEvent struct {
	Time  time.Time       `json:"time"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// PrintEvent outputs a frame received from the server. JSON mode emits one line per event.
func (o *Output) PrintEvent(frame gateway.Frame) {
	now := o.now()

	if o.format == "json" {
		data, _ := json.Marshal(SessionEvent{Time: now, Event: frame.Event, Data: frame.Data})
		_, _ = fmt.Fprintln(o.out, string(data))
		return
	}

	timestamp := now.Format("2006-01-02 15:04:05")
	_, _ = fmt.Fprintf(o.out, "[%s] %s\n", timestamp, describeFrame(frame))
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.HealthResponse:
		o.printHealth(v)
	case response.PartyList:
		o.printPartyList(v)
	case response.Party:
		o.printParty(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printHealth(h response.HealthResponse) {
	_, _ = fmt.Fprintf(o.out, "Status: %s\n", h.Status)
	_, _ = fmt.Fprintf(o.out, "Parties: %d\n", h.Parties)
	_, _ = fmt.Fprintf(o.out, "Connections: %d\n", h.Connections)
}

func (o *Output) printPartyList(l response.PartyList) {
	if len(l.Parties) == 0 {
		_, _ = fmt.Fprintln(o.out, "No parties are forming")
		return
	}

	_, _ = fmt.Fprintf(o.out, "Parties (%d):\n", len(l.Parties))
	for _, p := range l.Parties {
		_, _ = fmt.Fprintf(o.out, "  - %s's party (%d/%d players) [%s]\n", p.HostName, p.PlayerCount, p.MaxPlayers, p.ID)
	}
}

func (o *Output) printParty(p response.Party) {
	joinable := "no"
	if p.Joinable {
		joinable = "yes"
	}
	_, _ = fmt.Fprintf(o.out, "Party: %s\n", p.Code)
	_, _ = fmt.Fprintf(o.out, "Host: %s\n", p.HostName)
	_, _ = fmt.Fprintf(o.out, "Players: %d/%d\n", p.PlayerCount, p.MaxPlayers)
	_, _ = fmt.Fprintf(o.out, "State: %s\n", p.State)
	_, _ = fmt.Fprintf(o.out, "Joinable: %s\n", joinable)
}

// describeFrame renders a server frame as a single line of text
func describeFrame(frame gateway.Frame) string {
	switch model.EventType(frame.Event) {
	case model.EventPartyJoined:
		var payload gateway.PartyJoinedPayload
		if err := gateway.DecodePayload(frame, &payload); err != nil {
			break
		}
		p := payload.Party
		return fmt.Sprintf("joined party %s hosted by %s (%d/%d players)", p.Code, p.HostName, len(p.Players), p.MaxPlayers)
	case model.EventPartyPlayerUpdate:
		var payload gateway.PlayerUpdatePayload
		if err := gateway.DecodePayload(frame, &payload); err != nil {
			break
		}
		return "players: " + formatPlayers(payload.Players)
	case model.EventPartyStarted:
		return "game started"
	case model.EventError:
		var payload gateway.ErrorPayload
		if err := gateway.DecodePayload(frame, &payload); err != nil {
			break
		}
		return "error: " + payload.Message
	}
	return fmt.Sprintf("%s: %s", frame.Event, string(frame.Data))
}

func formatPlayers(players []model.Player) string {
	if len(players) == 0 {
		return "(none)"
	}
	names := make([]string, 0, len(players))
	for _, p := range players {
		if p.IsHost {
			names = append(names, p.Name+" [host]")
		} else {
			names = append(names, p.Name)
		}
	}
	return strings.Join(names, ", ")
}
