package devserver

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/euphroshub/minimalist-stack/internal/ctxlog"
)

// socketIOClientURL is the browser client loaded by the reload script when
// the page does not already provide one.
const socketIOClientURL = "https://cdn.socket.io/4.8.1/socket.io.min.js"

const reloadScript = `(function () {
  var origin = %s;
  function connect() {
    var socket = io(origin, { transports: ["websocket"] });
    socket.on(%s, function (msg) {
      if (msg && msg.kind === "css") {
        var links = document.querySelectorAll('link[rel="stylesheet"]');
        for (var i = 0; i < links.length; i++) {
          var url = new URL(links[i].href);
          url.searchParams.set("_reload", Date.now());
          links[i].href = url.toString();
        }
        return;
      }
      window.location.reload();
    });
  }
  if (window.io) {
    connect();
    return;
  }
  var s = document.createElement("script");
  s.src = %s;
  s.onload = connect;
  document.head.appendChild(s);
})();
`

// reloadMux routes the reload listener: the socket.io endpoint, the
// browser script and a health check.
func reloadMux(hub *Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/socket.io/", hub.handler())
	mux.HandleFunc("/reload.js", serveReloadScript)
	mux.HandleFunc("/health", healthHandler)
	return mux
}

func serveReloadScript(w http.ResponseWriter, r *http.Request) {
	origin := "//" + r.Host
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	fmt.Fprintf(w, reloadScript, strconv.Quote(origin), strconv.Quote(ReloadEvent), strconv.Quote(socketIOClientURL))
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	ctxlog.FromContext(r.Context()).Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}
