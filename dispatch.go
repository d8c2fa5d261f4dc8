package irccloud

import (
	"context"
	"errors"
	"fmt"
)

// HandlerFunc processa uma mensagem de um tipo específico.
// Um erro devolvido encerra a sessão atual e dispara a reconexão.
type HandlerFunc func(ctx context.Context, msg Message) error

// Handlers mapeia o campo "type" de uma mensagem para o seu handler.
// O valor zero está pronto para uso. Não é seguro para registro concorrente
// com Dispatch.
type Handlers struct {
	byType map[string]HandlerFunc
}

// NewHandlers cria um mapa de handlers vazio
func NewHandlers() *Handlers {
	return &Handlers{byType: make(map[string]HandlerFunc)}
}

// Handle registra fn para msgType
func (h *Handlers) Handle(msgType string, fn HandlerFunc) error {
	if msgType == "" {
		return errors.New("irccloud: tipo de mensagem vazio")
	}
	if fn == nil {
		return fmt.Errorf("irccloud: handler nulo para %q", msgType)
	}
	if h.byType == nil {
		h.byType = make(map[string]HandlerFunc)
	}
	if _, ok := h.byType[msgType]; ok {
		return fmt.Errorf("irccloud: handler já registrado para %q", msgType)
	}
	h.byType[msgType] = fn
	return nil
}

// MustHandle é como Handle, mas entra em pânico se o registro for inválido
func (h *Handlers) MustHandle(msgType string, fn HandlerFunc) {
	if err := h.Handle(msgType, fn); err != nil {
		panic(err)
	}
}

// Dispatch executa o handler de msg.Type, se existir.
// Tipos desconhecidos são ignorados silenciosamente. Um pânico no handler
// vira erro, como qualquer outra falha.
func (h *Handlers) Dispatch(ctx context.Context, msg Message) (err error) {
	if h == nil {
		return nil
	}
	fn, ok := h.byType[msg.Type]
	if !ok {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx, msg)
}
