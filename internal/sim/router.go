package sim

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/smallyu/go-tss/pkg/tss"
)

// Router delivers tss.Messages between in-process parties. Messages are held
// per recipient, session and phase until the recipient asks for them, so a
// fast party may run ahead into the next phase.
type Router struct {
	mu      sync.Mutex
	inboxes map[int]*inbox
}

type inbox struct {
	pending map[string][]*tss.Message
	// notify is closed and replaced on every delivery.
	notify chan struct{}
}

// NewRouter creates a router for the given party indices.
func NewRouter(parties []int) *Router {
	r := &Router{inboxes: make(map[int]*inbox, len(parties))}
	for _, i := range parties {
		r.inboxes[i] = &inbox{
			pending: make(map[string][]*tss.Message),
			notify:  make(chan struct{}),
		}
	}
	return r
}

func mailbox(session, phase string) string {
	return session + "/" + phase
}

// Send delivers msg to its recipient, or to every party but the sender when
// it is a broadcast.
func (r *Router) Send(msg *tss.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inboxes[msg.From]; !ok {
		return errors.Errorf("sim: unknown sender %d", msg.From)
	}
	if !msg.IsBroadcast() {
		box, ok := r.inboxes[msg.To]
		if !ok || msg.To == msg.From {
			return errors.Errorf("sim: party %d cannot send to %d", msg.From, msg.To)
		}
		box.deliver(msg)
		return nil
	}
	for i, box := range r.inboxes {
		if i != msg.From {
			box.deliver(msg)
		}
	}
	return nil
}

func (b *inbox) deliver(msg *tss.Message) {
	key := mailbox(msg.SessionID, msg.Phase)
	b.pending[key] = append(b.pending[key], msg)
	close(b.notify)
	b.notify = make(chan struct{})
}

// Receive blocks until count messages of phase in session have arrived for
// party self and returns them ordered by sender.
func (r *Router) Receive(ctx context.Context, self int, session, phase string, count int) ([]*tss.Message, error) {
	r.mu.Lock()
	box, ok := r.inboxes[self]
	r.mu.Unlock()
	if !ok {
		return nil, errors.Errorf("sim: unknown party %d", self)
	}
	key := mailbox(session, phase)
	for {
		r.mu.Lock()
		if len(box.pending[key]) >= count {
			msgs := box.pending[key][:count]
			box.pending[key] = box.pending[key][count:]
			r.mu.Unlock()
			sort.Slice(msgs, func(a, b int) bool { return msgs[a].From < msgs[b].From })
			return msgs, nil
		}
		notify := box.notify
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, errors.Wrapf(ctx.Err(), "party %d waiting for %s", self, phase)
		case <-notify:
		}
	}
}
