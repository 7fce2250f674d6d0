package service

import (
	"context"
	"sync"

	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/model"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/store"
)

// Registry keeps one workspace per client id.
type Registry struct {
	remote     store.Remote
	local      store.Local
	fetchLimit int

	mu         sync.Mutex
	workspaces map[string]*Workspace
}

// NewRegistry creates a registry. remote may be nil, in which case every session is served from
// the local store.
func NewRegistry(remote store.Remote, local store.Local, practiceFetchLimit int) *Registry {
	if local == nil {
		panic("local store is required")
	}

	return &Registry{
		remote:     remote,
		local:      local,
		fetchLimit: practiceFetchLimit,
		workspaces: make(map[string]*Workspace),
	}
}

func (r *Registry) RemoteConfigured() bool {
	return r.remote != nil
}

func (r *Registry) Get(clientID string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()

	ws, ok := r.workspaces[clientID]
	if !ok {
		ws = newWorkspace(clientID, r.remote, r.local, r.fetchLimit)
		r.workspaces[clientID] = ws
	}
	return ws
}

// Ensure returns the client's workspace with s as its active session, switching when the workspace
// currently holds another session. A session whose load has not succeeded yet is loaded again. A
// failed load is reported through the workspace notices and returned next to the usable workspace.
func (r *Registry) Ensure(ctx context.Context, clientID string, s model.Session) (*Workspace, error) {
	ws := r.Get(clientID)

	ws.switchMu.Lock()
	defer ws.switchMu.Unlock()

	if ws.Session().Same(s) {
		ws.setSession(s)
		if ws.Loaded() {
			return ws, nil
		}
		return ws, ws.Load(ctx)
	}
	return ws, ws.Switch(ctx, s)
}

// Drop clears and forgets the client's workspace.
func (r *Registry) Drop(clientID string) {
	r.mu.Lock()
	ws, ok := r.workspaces[clientID]
	delete(r.workspaces, clientID)
	r.mu.Unlock()

	if ok {
		ws.switchMu.Lock()
		_ = ws.Switch(context.Background(), model.Session{})
		ws.switchMu.Unlock()
	}
}
