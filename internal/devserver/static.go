package devserver

import (
	"bytes"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/euphroshub/minimalist-stack/internal/ctxlog"
)

// noCache disables every layer of HTTP caching so each request reflects
// the files currently on disk.
func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "0")
		h.Set("Surrogate-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// staticHandler serves files below dir. Directory requests resolve to the
// index document and HTML responses carry the reload script.
type staticHandler struct {
	dir        string
	index      string
	reloadPort func() int
}

func (s *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	upath := path.Clean("/" + r.URL.Path)
	name := filepath.Join(s.dir, filepath.FromSlash(upath))

	info, err := os.Stat(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if info.IsDir() {
		if !strings.HasSuffix(r.URL.Path, "/") {
			http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
			return
		}
		name = filepath.Join(name, s.index)
		info, err = os.Stat(name)
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}
	}

	contents, err := os.ReadFile(name)
	if err != nil {
		ctxlog.FromContext(r.Context()).Error("Failed to read static file.", "file", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if isHTML(name) {
		contents = injectScript(contents, s.scriptURL(r))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	// A zero modtime keeps ServeContent from emitting Last-Modified.
	http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(contents))
}

// scriptURL points at the reload script on the reload listener, using the
// host name the browser used to reach the static listener.
func (s *staticHandler) scriptURL(r *http.Request) string {
	host := r.Host
	if h, _, err := net.SplitHostPort(r.Host); err == nil {
		host = h
	}
	if host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("//%s/reload.js", net.JoinHostPort(host, strconv.Itoa(s.reloadPort())))
}

func isHTML(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm":
		return true
	}
	return false
}

// closingBody matches on the raw bytes so that offsets stay valid for
// documents that are not UTF-8.
var closingBody = regexp.MustCompile(`(?i)</body\s*>`)

// injectScript inserts a script tag before the last closing body tag, or
// appends it when the document has none.
func injectScript(doc []byte, src string) []byte {
	tag := []byte(fmt.Sprintf(`<script async src="%s"></script>`, src))
	locs := closingBody.FindAllIndex(doc, -1)
	if len(locs) == 0 {
		return append(append(doc[:len(doc):len(doc)], '\n'), tag...)
	}
	idx := locs[len(locs)-1][0]
	out := make([]byte, 0, len(doc)+len(tag))
	out = append(out, doc[:idx]...)
	out = append(out, tag...)
	out = append(out, doc[idx:]...)
	return out
}
