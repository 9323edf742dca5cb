package devserver

import (
	"context"
	"net/http"
	"sync"

	"github.com/euphroshub/minimalist-stack/internal/ctxlog"
	"github.com/euphroshub/minimalist-stack/internal/watch"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io/v2/socket"
)

// ReloadEvent is the socket.io event name carrying reload instructions.
const ReloadEvent = "reload"

// Hub is the registry of connected browsers. The connection set is private;
// callers can only observe connections and broadcast reloads.
type Hub struct {
	ctx context.Context
	io  *socket.Server

	mu        sync.Mutex
	clients   map[string]struct{}
	onConnect []func(id string)
}

// NewHub creates a hub backed by a socket.io server. ctx carries the logger
// used for connection events.
func NewHub(ctx context.Context) *Hub {
	opts := socket.DefaultServerOptions()
	opts.SetServeClient(false)
	opts.SetCors(&types.Cors{Origin: "*"})

	h := &Hub{
		ctx:     ctx,
		io:      socket.NewServer(nil, opts),
		clients: make(map[string]struct{}),
	}
	h.io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		id := string(client.Id())
		h.connected(id)
		client.On("disconnect", func(...any) {
			h.disconnected(id)
		})
	})
	return h
}

// OnClientConnect registers fn to be called with the id of every browser
// that connects from now on.
func (h *Hub) OnClientConnect(fn func(id string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onConnect = append(h.onConnect, fn)
}

// BroadcastReload sends a reload instruction to every connected browser.
// It implements watch.Reloader.
func (h *Hub) BroadcastReload(kind watch.ReloadKind, paths []string) {
	if paths == nil {
		paths = []string{}
	}
	h.io.Emit(ReloadEvent, map[string]any{
		"kind":  kind.String(),
		"paths": paths,
	})
	ctxlog.FromContext(h.ctx).Debug("Reload emitted.", "kind", kind, "clients", h.Clients())
}

// Clients returns the number of connected browsers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) handler() http.Handler {
	return h.io.ServeHandler(nil)
}

func (h *Hub) close() {
	h.io.Close(nil)
}

func (h *Hub) connected(id string) {
	h.mu.Lock()
	h.clients[id] = struct{}{}
	listeners := append([]func(string){}, h.onConnect...)
	h.mu.Unlock()

	ctxlog.FromContext(h.ctx).Info("🔌 Browser connected", "id", id, "clients", h.Clients())
	for _, fn := range listeners {
		fn(id)
	}
}

func (h *Hub) disconnected(id string) {
	h.mu.Lock()
	delete(h.clients, id)
	h.mu.Unlock()
	ctxlog.FromContext(h.ctx).Debug("Browser disconnected.", "id", id)
}

var _ watch.Reloader = (*Hub)(nil)
