package infrastructure

import "sync"

// LocalPresence is the in-memory presence view of one service instance. It
// always mirrors this instance's own connections so a distributed-store
// outage degrades delivery to local-only instead of failing it.
type LocalPresence struct {
	mu     sync.RWMutex
	byUser map[string]map[string]struct{}
	byConn map[string]string
}

func NewLocalPresence() *LocalPresence {
	return &LocalPresence{
		byUser: make(map[string]map[string]struct{}),
		byConn: make(map[string]string),
	}
}

// Add records the connection under the user. A connection id already owned by
// another user is moved, keeping the at-most-one-owner invariant.
func (p *LocalPresence) Add(userID, connectionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if prev, ok := p.byConn[connectionID]; ok && prev != userID {
		p.removeLocked(connectionID, prev)
	}
	if p.byUser[userID] == nil {
		p.byUser[userID] = make(map[string]struct{})
	}
	p.byUser[userID][connectionID] = struct{}{}
	p.byConn[connectionID] = userID
}

// Remove drops the connection from its owner's set and the reverse lookup.
// Removing an unknown connection is a no-op.
func (p *LocalPresence) Remove(connectionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	userID, ok := p.byConn[connectionID]
	if !ok {
		return
	}
	p.removeLocked(connectionID, userID)
}

func (p *LocalPresence) removeLocked(connectionID, userID string) {
	delete(p.byConn, connectionID)
	if conns, ok := p.byUser[userID]; ok {
		delete(conns, connectionID)
		if len(conns) == 0 {
			delete(p.byUser, userID)
		}
	}
}

func (p *LocalPresence) Connections(userID string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	conns := make([]string, 0, len(p.byUser[userID]))
	for id := range p.byUser[userID] {
		conns = append(conns, id)
	}
	return conns
}

func (p *LocalPresence) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byUser[userID]) > 0
}

func (p *LocalPresence) CountUsers() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byUser)
}

func (p *LocalPresence) UserByConnection(connectionID string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.byConn[connectionID]
}
