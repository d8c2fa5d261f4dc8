package irccloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// StreamDialer abre conexões WebSocket autenticadas em um dos shards
type StreamDialer struct {
	dialer *websocket.Dialer
	shards []string
	origin string
}

// NewStreamDialer cria um StreamDialer. Todos os shards são equivalentes.
func NewStreamDialer(dialer *websocket.Dialer, origin string, shards []string) *StreamDialer {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &StreamDialer{
		dialer: dialer,
		shards: shards,
		origin: origin,
	}
}

// Open conecta em um shard aleatório usando o token da sessão como cookie
func (d *StreamDialer) Open(ctx context.Context, s Session) (*Stream, error) {
	if len(d.shards) == 0 {
		return nil, errors.New("irccloud: nenhum shard configurado")
	}
	shard := d.shards[rand.IntN(len(d.shards))]

	headers := http.Header{}
	headers.Set("Cookie", "session="+s.Token)
	headers.Set("Origin", d.origin)
	headers.Set("User-Agent", userAgent)

	conn, resp, err := d.dialer.DialContext(ctx, shard, headers)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (status %d)", err, resp.StatusCode)
		}
		return nil, &StreamError{Kind: ErrConnectionLost, Err: fmt.Errorf("dial %s: %w", shard, err)}
	}

	return &Stream{conn: conn, shard: shard}, nil
}

// Stream é a sequência de mensagens de uma única conexão.
// Next deve ser chamado por uma única goroutine; Close pode ser chamado de qualquer uma.
type Stream struct {
	conn  *websocket.Conn
	shard string

	closeOnce sync.Once
	closeErr  error
}

// Shard devolve a URL em que o stream está conectado
func (s *Stream) Shard() string {
	return s.shard
}

// Next bloqueia até o próximo frame não vazio e o decodifica.
// Frames vazios (keep-alive) são descartados.
func (s *Stream) Next() (Message, error) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return Message{}, &StreamError{Kind: ErrConnectionLost, Err: err}
		}

		data = bytes.TrimSpace(data)
		if len(data) == 0 {
			continue
		}

		var head struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &head); err != nil {
			return Message{}, &StreamError{Kind: ErrMalformedFrame, Err: err}
		}

		return Message{Type: head.Type, Raw: json.RawMessage(data)}, nil
	}
}

// Close fecha a conexão, desbloqueando um Next pendente. Pode ser chamado mais de uma vez.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
