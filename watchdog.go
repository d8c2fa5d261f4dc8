package irccloud

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// watchdog fecha a conexão quando nenhuma mensagem chega dentro do timeout.
// Vive exatamente o tempo de uma tentativa de sessão.
type watchdog struct {
	clock    clockwork.Clock
	timeout  time.Duration
	interval time.Duration
	close    func() error
	logger   zerolog.Logger

	// lastSeen em UnixNano; zero enquanto não armado
	lastSeen atomic.Int64
	fired    atomic.Bool
}

func newWatchdog(clock clockwork.Clock, closeFn func() error, timeout, interval time.Duration, logger zerolog.Logger) *watchdog {
	return &watchdog{
		clock:    clock,
		timeout:  timeout,
		interval: interval,
		close:    closeFn,
		logger:   logger,
	}
}

// touch registra o recebimento de uma mensagem (e arma o watchdog)
func (w *watchdog) touch() {
	w.lastSeen.Store(w.clock.Now().UnixNano())
}

// stalled informa se o watchdog fechou a conexão
func (w *watchdog) stalled() bool {
	return w.fired.Load()
}

// expired decide se now caracteriza uma conexão parada
func (w *watchdog) expired(now time.Time) bool {
	last := w.lastSeen.Load()
	if last == 0 {
		return false
	}
	return now.Sub(time.Unix(0, last)) > w.timeout
}

func (w *watchdog) run(ctx context.Context) {
	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.Chan():
			if !w.expired(now) {
				continue
			}
			if w.fired.CompareAndSwap(false, true) {
				idle := now.Sub(time.Unix(0, w.lastSeen.Load()))
				w.logger.Warn().Dur("idle", idle).Dur("timeout", w.timeout).Msg("conexão expirou, fechando")
				if err := w.close(); err != nil {
					w.logger.Debug().Err(err).Msg("erro ao fechar conexão")
				}
			}
			return
		}
	}
}
