package redis

import (
	"fmt"

	"github.com/mcoot/partycoord/internal/model"
)

// partyKey returns the Redis key for a party summary
func (s *Storage) partyKey(code model.PartyCode) string {
	return fmt.Sprintf("%s:party:%s", s.cfg.KeyPrefix, code)
}

// partyIndexKey returns the Redis key for the SET of live party keys
func (s *Storage) partyIndexKey() string {
	return fmt.Sprintf("%s:idx:parties", s.cfg.KeyPrefix)
}
