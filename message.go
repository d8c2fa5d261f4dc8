package irccloud

import (
	"context"
	"encoding/json"
)

// Credentials é o par (identidade, segredo) fornecido por quem chama o cliente.
// O cliente nunca persiste esses dados.
type Credentials struct {
	Identity string
	Secret   string
}

// Session representa o token de sessão obtido no login.
type Session struct {
	Token string
}

// Message representa um frame decodificado do stream
type Message struct {
	Type string
	Raw  json.RawMessage
}

// Decode decodifica o frame completo em v
func (m Message) Decode(v any) error {
	return json.Unmarshal(m.Raw, v)
}

type sessionKey struct{}

// ContextWithSession devolve uma cópia de ctx carregando a sessão
func ContextWithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext devolve a sessão da tentativa atual para uso nos handlers.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}
