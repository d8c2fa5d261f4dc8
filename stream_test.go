package irccloud

import (
	"context"
	"errors"
	"testing"
	"time"
)

func openTestStream(t *testing.T, b *fakeBackend) *Stream {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := NewStreamDialer(nil, b.srv.URL, []string{b.shard()}).Open(ctx, Session{Token: "S1"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = stream.Close() })
	return stream
}

func TestStreamDecodesFramesInOrder(t *testing.T) {
	b := newFakeBackend(t)
	b.set(func(b *fakeBackend) {
		b.frames = []string{
			"",
			"  \n",
			`{"type":"header","streamid":"abc","idle_interval":29000}`,
			`{"eid":42}`,
			`{"type":"buffer_msg","msg":"oi"}`,
		}
	})

	stream := openTestStream(t, b)

	want := []string{"header", "", "buffer_msg"}
	for i, typ := range want {
		msg, err := stream.Next()
		if err != nil {
			t.Fatalf("mensagem %d: %v", i, err)
		}
		if msg.Type != typ {
			t.Fatalf("mensagem %d: tipo esperado %q, recebido %q", i, typ, msg.Type)
		}
	}

	_, err := stream.Next()
	if !errors.Is(err, ErrConnectionLost) {
		t.Fatalf("esperado ErrConnectionLost após fechamento remoto, recebido %v", err)
	}

	if got := b.cookieAt(0); got != "session=S1" {
		t.Fatalf("cookie esperado session=S1, recebido %q", got)
	}
}

func TestStreamMessageDecode(t *testing.T) {
	b := newFakeBackend(t)
	b.set(func(b *fakeBackend) {
		b.frames = []string{`{"type":"oob_include","url":"/chat/backlog?x=1"}`}
	})

	msg, err := openTestStream(t, b).Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}

	var payload struct {
		URL string `json:"url"`
	}
	if err := msg.Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.URL != "/chat/backlog?x=1" {
		t.Fatalf("url inesperada: %q", payload.URL)
	}
}

func TestStreamMalformedFrame(t *testing.T) {
	b := newFakeBackend(t)
	b.set(func(b *fakeBackend) {
		b.frames = []string{`não é json`}
		b.hold = true
	})

	_, err := openTestStream(t, b).Next()
	if !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("esperado ErrMalformedFrame, recebido %v", err)
	}
}

func TestStreamCloseUnblocksPendingRead(t *testing.T) {
	b := newFakeBackend(t)
	b.set(func(b *fakeBackend) { b.hold = true })

	stream := openTestStream(t, b)

	result := make(chan error, 1)
	go func() {
		_, err := stream.Next()
		result <- err
	}()

	time.Sleep(50 * time.Millisecond)
	if err := stream.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	select {
	case err := <-result:
		if !errors.Is(err, ErrConnectionLost) {
			t.Fatalf("esperado ErrConnectionLost, recebido %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("leitura continuou bloqueada após Close")
	}

	if err := stream.Close(); err != nil {
		t.Fatalf("segundo close deveria ser idempotente: %v", err)
	}
}

func TestOpenRejected(t *testing.T) {
	b := newFakeBackend(t)
	b.set(func(b *fakeBackend) { b.rejectStream = true })

	_, err := NewStreamDialer(nil, b.srv.URL, []string{b.shard()}).Open(context.Background(), Session{Token: "S1"})
	if !errors.Is(err, ErrConnectionLost) {
		t.Fatalf("esperado ErrConnectionLost, recebido %v", err)
	}
}

func TestOpenWithoutShards(t *testing.T) {
	_, err := NewStreamDialer(nil, "https://example.invalid", nil).Open(context.Background(), Session{Token: "S1"})
	if err == nil {
		t.Fatal("esperado erro sem shards")
	}
}
