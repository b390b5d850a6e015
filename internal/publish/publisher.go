package publish

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mcoot/partycoord/internal/model"
)

// DefaultSubjectPrefix is the subject prefix for lifecycle events
const DefaultSubjectPrefix = "party.lifecycle"

// Publisher emits party lifecycle changes to external consumers
type Publisher interface {
	Publish(ctx context.Context, change model.PartyChange) error
	Close() error
}

// Subject returns the subject a change is published on
func Subject(prefix string, kind model.ChangeKind) string {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return prefix + "." + string(kind)
}

// Encode serializes a change into its wire envelope
func Encode(change model.PartyChange) ([]byte, error) {
	return json.Marshal(change)
}

// NopPublisher drops every change
type NopPublisher struct {
	logger *slog.Logger
}

// NewNop creates a publisher used when no broker is configured
func NewNop(logger *slog.Logger) *NopPublisher {
	return &NopPublisher{logger: logger.With(slog.String("component", "publish"))}
}

// Publish implements Publisher
func (p *NopPublisher) Publish(ctx context.Context, change model.PartyChange) error {
	p.logger.Debug("lifecycle event not published",
		slog.String("kind", string(change.Kind)),
		slog.String("party_id", string(change.Summary.ID)))
	return nil
}

// Close implements Publisher
func (p *NopPublisher) Close() error {
	return nil
}
