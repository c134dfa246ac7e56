package session

import "sync"

// Registry is the shared mapping from peer_id to the set of live
// sessions for that peer (§4.3, §5). One peer may connect more than
// once; Get preserves "deliver to any one live session for this peer"
// by returning the first entry in insertion order, mirroring the
// source's tie-break (§9).
type Registry struct {
	mu       sync.RWMutex
	sessions map[string][]*Session
}

// NewRegistry returns an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string][]*Session)}
}

// Add registers sess under peerID.
func (r *Registry) Add(peerID string, sess *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[peerID] = append(r.sessions[peerID], sess)
}

// Remove unregisters sess from peerID. A no-op if sess is not present.
func (r *Registry) Remove(peerID string, sess *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	live := r.sessions[peerID]
	for i, s := range live {
		if s == sess {
			r.sessions[peerID] = append(live[:i], live[i+1:]...)
			break
		}
	}
	if len(r.sessions[peerID]) == 0 {
		delete(r.sessions, peerID)
	}
}

// Get returns a live session for peerID, if any. When more than one
// connection is live for the same peer, the first one added is
// returned.
func (r *Registry) Get(peerID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	live := r.sessions[peerID]
	if len(live) == 0 {
		return nil, false
	}
	return live[0], true
}

// Count returns the total number of live sessions across all peers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, live := range r.sessions {
		n += len(live)
	}
	return n
}
