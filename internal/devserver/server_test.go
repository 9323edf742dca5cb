package devserver

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/euphroshub/minimalist-stack/internal/watch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

func startTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<body></body>"), 0o644))

	srv := New(context.Background(), Options{Dir: dir, Host: "127.0.0.1"})
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
	})
	return srv
}

func httpGet(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServer_StartServesBothListeners(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	srv := startTestServer(t)
	_, reloadPort, err := net.SplitHostPort(srv.ReloadAddr())
	require.NoError(t, err)

	// --- Act ---
	pageCode, page := httpGet(t, "http://"+srv.Addr()+"/")
	healthCode, health := httpGet(t, "http://"+srv.ReloadAddr()+"/health")
	scriptCode, script := httpGet(t, "http://"+srv.ReloadAddr()+"/reload.js")

	// --- Assert ---
	assert.Equal(t, http.StatusOK, pageCode)
	assert.Contains(t, page, `<script async src="//127.0.0.1:`+reloadPort+`/reload.js"></script>`)
	assert.Equal(t, http.StatusOK, healthCode)
	assert.Equal(t, "OK\n", health)
	assert.Equal(t, http.StatusOK, scriptCode)
	assert.Contains(t, script, `socket.on("reload"`)
	assert.Contains(t, script, socketIOClientURL)
}

func TestServer_StartFailsWhenPortIsBound(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()
	port := busy.Addr().(*net.TCPAddr).Port

	srv := New(context.Background(), Options{Dir: t.TempDir(), Host: "127.0.0.1", Port: port})

	// --- Act ---
	err = srv.Start(context.Background())

	// --- Assert ---
	require.Error(t, err)
	var opErr *net.OpError
	assert.True(t, errors.As(err, &opErr), "the listen error is surfaced: %v", err)
	assert.Contains(t, err.Error(), strconv.Itoa(port))
	assert.Empty(t, srv.Addr())
	assert.NoError(t, srv.Shutdown(context.Background()), "shutting down a server that never started is a no-op")
}

func TestHub_BroadcastReachesConnectedClient(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	srv := startTestServer(t)
	hub := srv.Hub()

	joined := make(chan string, 1)
	hub.OnClientConnect(func(id string) { joined <- id })

	opts := socket.DefaultOptions()
	opts.SetTransports(types.NewSet(transports.WebSocket))
	manager := socket.NewManager("http://"+srv.ReloadAddr(), opts)
	client := manager.Socket("/", opts)
	defer client.Disconnect()

	received := make(chan map[string]any, 1)
	client.On(types.EventName(ReloadEvent), func(data ...any) {
		if len(data) > 0 {
			if msg, ok := data[0].(map[string]any); ok {
				received <- msg
			}
		}
	})
	client.Connect()

	select {
	case id := <-joined:
		assert.NotEmpty(t, id)
	case <-time.After(5 * time.Second):
		t.Fatal("client never connected")
	}
	assert.Equal(t, 1, hub.Clients())

	// --- Act ---
	hub.BroadcastReload(watch.ReloadCSS, []string{"app/scss/style.scss"})

	// --- Assert ---
	select {
	case msg := <-received:
		assert.Equal(t, "css", msg["kind"])
		assert.Equal(t, []any{"app/scss/style.scss"}, msg["paths"])
	case <-time.After(5 * time.Second):
		t.Fatal("reload was not delivered")
	}
}

func TestHub_BroadcastWithoutClientsIsHarmless(t *testing.T) {
	t.Parallel()

	hub := NewHub(context.Background())
	defer hub.close()

	assert.NotPanics(t, func() { hub.BroadcastReload(watch.ReloadPage, nil) })
	assert.Zero(t, hub.Clients())
}
