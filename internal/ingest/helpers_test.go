package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/relaysync/internal/codec"
	"github.com/roach88/relaysync/internal/eventstate"
	"github.com/roach88/relaysync/internal/testutil"
	"github.com/roach88/relaysync/internal/wire"
)

// fakeStore is an in-memory Store with hooks for failure injection.
type fakeStore struct {
	mu        sync.Mutex
	revs      map[eventstate.Key]Revision
	reads     int
	swaps     int
	loseSwaps int
	readErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{revs: make(map[eventstate.Key]Revision)}
}

func (s *fakeStore) Current(_ context.Context, key eventstate.Key) (*Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.readErr != nil {
		return nil, s.readErr
	}
	r, ok := s.revs[key]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *fakeStore) CompareAndSwap(_ context.Context, key eventstate.Key, expected *Revision, next Revision) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swaps++
	if s.loseSwaps > 0 {
		s.loseSwaps--
		return false, nil
	}
	cur, ok := s.revs[key]
	switch {
	case expected == nil && ok:
		return false, nil
	case expected != nil && (!ok || cur.EventID != expected.EventID):
		return false, nil
	}
	s.revs[key] = next
	return true, nil
}

func (s *fakeStore) get(key eventstate.Key) (Revision, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.revs[key]
	return r, ok
}

var aliceProfile = eventstate.NewKey(codec.KindProfile, "alice", "")

// profileEvent builds a decodable replaceable event for alice.
func profileEvent(id string, createdAt uint32, name string) wire.RawEvent {
	return testutil.Event(codec.KindProfile).
		ID(id).
		Author("alice").
		At(createdAt).
		Content(fmt.Sprintf(`{"name":%q}`, name)).
		Build()
}
