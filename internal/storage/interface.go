package storage

import (
	"context"

	"github.com/mcoot/partycoord/internal/model"
)

// Storage holds the directory of live parties.
// Sessions remain the source of truth; the directory is a read model for listings.
type Storage interface {
	SaveParty(ctx context.Context, summary *model.PartySummary) error
	GetParty(ctx context.Context, code model.PartyCode) (*model.PartySummary, error)
	DeleteParty(ctx context.Context, code model.PartyCode) error

	// ListParties returns every live party ordered by creation time
	ListParties(ctx context.Context) ([]*model.PartySummary, error)
}
