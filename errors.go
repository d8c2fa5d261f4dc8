package irccloud

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("irccloud: email/senha inválidos")
	ErrAuthTransport      = errors.New("irccloud: falha de transporte na autenticação")
	ErrConnectionLost     = errors.New("irccloud: conexão perdida")
	ErrStalled            = errors.New("irccloud: conexão parada (timeout)")
	ErrMalformedFrame     = errors.New("irccloud: frame inválido")
)

// AuthError é devolvido por Authenticator.Login.
// Kind é ErrInvalidCredentials ou ErrAuthTransport.
type AuthError struct {
	Kind error
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *AuthError) Unwrap() []error { return unwrapPair(e.Kind, e.Err) }

// StreamError encerra um Stream.
// Kind é ErrConnectionLost, ErrStalled ou ErrMalformedFrame.
type StreamError struct {
	Kind error
	Err  error
}

func (e *StreamError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *StreamError) Unwrap() []error { return unwrapPair(e.Kind, e.Err) }

// HandlerError embrulha a falha de um handler registrado.
type HandlerError struct {
	Type string
	Err  error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("irccloud: handler %q falhou: %v", e.Type, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

func unwrapPair(kind, err error) []error {
	if err == nil {
		return []error{kind}
	}
	return []error{kind, err}
}
