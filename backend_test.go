package irccloud

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

// fakeBackend simula a API HTTP e o endpoint WebSocket do IRCCloud
type fakeBackend struct {
	srv *httptest.Server

	mu            sync.Mutex
	tokenBody     string
	loginBody     string
	rejectStream  bool
	frames        []string
	hold          bool
	tokenRequests int
	logins        []loginForm
	cookies       []string
	streams       int
}

// loginForm guarda o que foi enviado no formulário de login
type loginForm struct {
	Email, Password, Token, HeaderToken string
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()

	b := &fakeBackend{
		tokenBody: `{"success":true,"token":"tok-1"}`,
		loginBody: `{"success":true,"session":"S1"}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat/auth-formtoken", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.tokenRequests++
		body := b.tokenBody
		b.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("POST /chat/login", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		b.logins = append(b.logins, loginForm{
			Email:       r.PostForm.Get("email"),
			Password:    r.PostForm.Get("password"),
			Token:       r.PostForm.Get("token"),
			HeaderToken: r.Header.Get("X-Auth-Formtoken"),
		})
		body := b.loginBody
		b.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	mux.HandleFunc("/websocket/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.cookies = append(b.cookies, r.Header.Get("Cookie"))
		reject := b.rejectStream
		frames := append([]string(nil), b.frames...)
		hold := b.hold
		b.streams++
		b.mu.Unlock()

		if reject {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}

		if !hold {
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

func (b *fakeBackend) shard() string {
	return "ws" + strings.TrimPrefix(b.srv.URL, "http") + "/websocket/0"
}

func (b *fakeBackend) options() []Option {
	return []Option{
		WithOrigin(b.srv.URL),
		WithShards(b.shard()),
		WithHTTPClient(b.srv.Client()),
	}
}

func (b *fakeBackend) set(fn func(b *fakeBackend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}

func (b *fakeBackend) loginCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.logins)
}

func (b *fakeBackend) loginAt(i int) loginForm {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.logins[i]
}

func (b *fakeBackend) cookieAt(i int) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cookies[i]
}
