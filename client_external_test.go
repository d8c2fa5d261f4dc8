package irccloud_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	irccloud "github.com/NPChat/go-irccloud"
)

// newServer sobe login e stream mínimos; o stream envia frames e fica aberto
func newServer(t *testing.T, frames ...string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat/auth-formtoken", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"token":"tok"}`))
	})
	mux.HandleFunc("POST /chat/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"session":"S1"}`))
	})

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	mux.HandleFunc("/websocket/", func(w http.ResponseWriter, r *http.Request) {
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
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(srv *httptest.Server) *irccloud.Client {
	return irccloud.New(irccloud.Credentials{Identity: "alice@example.com", Secret: "pw"},
		irccloud.WithOrigin(srv.URL),
		irccloud.WithShards("ws"+strings.TrimPrefix(srv.URL, "http")+"/websocket/0"),
		irccloud.WithHTTPClient(srv.Client()),
	)
}

func TestClientDeliversMessagesWithSession(t *testing.T) {
	srv := newServer(t, `{"type":"buffer_msg","cid":7,"msg":"olá"}`)
	client := newClient(srv)

	type bufferMsg struct {
		CID int    `json:"cid"`
		Msg string `json:"msg"`
	}
	type delivery struct {
		msg   bufferMsg
		token string
	}
	got := make(chan delivery, 1)

	if err := client.Handle("buffer_msg", func(ctx context.Context, msg irccloud.Message) error {
		var m bufferMsg
		if err := msg.Decode(&m); err != nil {
			return err
		}
		s, _ := irccloud.SessionFromContext(ctx)
		got <- delivery{msg: m, token: s.Token}
		return nil
	}); err != nil {
		t.Fatalf("handle: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	select {
	case d := <-got:
		if d.msg.CID != 7 || d.msg.Msg != "olá" {
			t.Fatalf("mensagem inesperada: %+v", d.msg)
		}
		if d.token != "S1" {
			t.Fatalf("sessão ausente do contexto: %q", d.token)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("mensagem não entregue")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run deveria retornar nil, recebido %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run não retornou após cancelamento")
	}
}

func TestClientReportsHandlerPanic(t *testing.T) {
	srv := newServer(t, `{"type":"makebuffer"}`)
	client := newClient(srv)

	errs := make(chan error, 1)
	client.OnError = func(err error) {
		select {
		case errs <- err:
		default:
		}
	}
	if err := client.Handle("makebuffer", func(ctx context.Context, msg irccloud.Message) error {
		var buffers []string
		_ = buffers[3]
		return nil
	}); err != nil {
		t.Fatalf("handle: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Run(ctx) }()

	select {
	case err := <-errs:
		var handlerErr *irccloud.HandlerError
		if !errors.As(err, &handlerErr) || handlerErr.Type != "makebuffer" {
			t.Fatalf("esperado *HandlerError de makebuffer, recebido %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("pânico do handler não foi reportado")
	}
}

func TestHandlersPublicSurface(t *testing.T) {
	var h irccloud.Handlers
	if err := h.Handle("header", func(ctx context.Context, msg irccloud.Message) error {
		return errors.New("falhou")
	}); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if err := h.Dispatch(context.Background(), irccloud.Message{Type: "header"}); err == nil {
		t.Fatal("erro do handler deveria ser propagado")
	}
	if err := h.Dispatch(context.Background(), irccloud.Message{Type: "idle"}); err != nil {
		t.Fatalf("tipo desconhecido deveria ser ignorado: %v", err)
	}

	if _, ok := irccloud.SessionFromContext(context.Background()); ok {
		t.Fatal("contexto sem sessão não deveria ter sessão")
	}
}
