package party

import (
	"time"

	"github.com/mcoot/partycoord/internal/model"
)

// command is a message handled by a session's run goroutine.
// fail answers the command with err if it has not been answered yet.
type command interface {
	fail(err error)
}

type joinReply struct {
	joined Joined
	err    error
}

type joinCmd struct {
	playerID model.PlayerID
	name     string
	sub      Subscriber
	reply    chan joinReply
}

func (c joinCmd) fail(err error) {
	select {
	case c.reply <- joinReply{err: err}:
	default:
	}
}

type leaveReply struct {
	result LeaveResult
	err    error
}

type leaveCmd struct {
	playerID model.PlayerID
	reply    chan leaveReply
}

func (c leaveCmd) fail(err error) {
	select {
	case c.reply <- leaveReply{err: err}:
	default:
	}
}

type startCmd struct {
	requester model.PlayerID
	reply     chan error
}

func (c startCmd) fail(err error) {
	select {
	case c.reply <- err:
	default:
	}
}

type snapshotReply struct {
	details model.PartyDetails
	err     error
}

type snapshotCmd struct {
	reply chan snapshotReply
}

func (c snapshotCmd) fail(err error) {
	select {
	case c.reply <- snapshotReply{err: err}:
	default:
	}
}

type reapReply struct {
	closed bool
	err    error
}

type reapCmd struct {
	timeout time.Duration
	reply   chan reapReply
}

func (c reapCmd) fail(err error) {
	select {
	case c.reply <- reapReply{err: err}:
	default:
	}
}

type closeCmd struct {
	reason string
	reply  chan error
}

func (c closeCmd) fail(err error) {
	select {
	case c.reply <- err:
	default:
	}
}
