package audit

import (
	"context"
	"errors"
)

// ErrInboxFull reports a dropped event. Services log the drop and carry on;
// audit pressure never backs up into lifecycle operations.
var ErrInboxFull = errors.New("audit inbox full")

// ChannelSink hands events to the background worker through a buffered
// channel. Emit never blocks.
type ChannelSink struct {
	inbox chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 256
	}
	return &ChannelSink{inbox: make(chan Event, buffer)}
}

// Inbox exposes the consumer end for the worker.
func (s *ChannelSink) Inbox() <-chan Event {
	return s.inbox
}

func (s *ChannelSink) Emit(_ context.Context, event Event) error {
	select {
	case s.inbox <- event:
		return nil
	default:
		return ErrInboxFull
	}
}
