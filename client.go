package irccloud

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

const (
	DefaultOrigin       = "https://www.irccloud.com"
	DefaultRetryDelay   = 30 * time.Second
	DefaultIdleTimeout  = 120 * time.Second
	DefaultPollInterval = 5 * time.Second

	defaultStreamURL = "wss://api.irccloud.com/websocket/"
	userAgent        = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"
)

// DefaultShards devolve os endpoints de streaming equivalentes (websocket/0 a websocket/9)
func DefaultShards() []string {
	shards := make([]string, 0, 10)
	for i := range 10 {
		shards = append(shards, fmt.Sprintf("%s%d", defaultStreamURL, i))
	}
	return shards
}

// Client mantém uma sessão viva com o IRCCloud indefinidamente
type Client struct {
	creds Credentials

	origin       string
	shards       []string
	retryDelay   time.Duration
	idleTimeout  time.Duration
	pollInterval time.Duration

	// OnError é chamado a cada sessão encerrada, antes da espera de reconexão
	OnError func(err error)

	handlers   *Handlers
	httpClient *http.Client
	dialer     *websocket.Dialer
	clock      clockwork.Clock
	logger     zerolog.Logger
}

type Option func(*Client)

// WithHTTPClient permite injetar um cliente HTTP customizado
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithDialer permite injetar um dialer WebSocket customizado
func WithDialer(dialer *websocket.Dialer) Option {
	return func(c *Client) {
		c.dialer = dialer
	}
}

// WithOrigin troca a origem da API HTTP (login e token)
func WithOrigin(origin string) Option {
	return func(c *Client) {
		c.origin = origin
	}
}

// WithShards troca a lista de endpoints de streaming
func WithShards(shards ...string) Option {
	return func(c *Client) {
		c.shards = shards
	}
}

// WithRetryDelay define a espera fixa entre reconexões
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithIdleTimeout define depois de quanto tempo sem mensagens a conexão é fechada
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.idleTimeout = d
	}
}

// WithPollInterval define o intervalo de verificação do watchdog
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		c.pollInterval = d
	}
}

// WithHandlers define os handlers usados para despachar as mensagens
func WithHandlers(h *Handlers) Option {
	return func(c *Client) {
		c.handlers = h
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) {
		c.clock = clock
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New cria um novo cliente. As credenciais são reutilizadas em todas as reconexões.
func New(creds Credentials, opts ...Option) *Client {
	c := &Client{
		creds:        creds,
		origin:       DefaultOrigin,
		shards:       DefaultShards(),
		retryDelay:   DefaultRetryDelay,
		idleTimeout:  DefaultIdleTimeout,
		pollInterval: DefaultPollInterval,
		OnError:      func(e error) {},
		handlers:     NewHandlers(),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		dialer:       websocket.DefaultDialer,
		clock:        clockwork.NewRealClock(),
		logger:       zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.With().Str("component", "irccloud").Logger()
	return c
}

// Handle registra um handler para o tipo de mensagem informado
func (c *Client) Handle(msgType string, fn HandlerFunc) error {
	return c.handlers.Handle(msgType, fn)
}

// Run autentica, conecta e consome o stream, reconectando após qualquer falha
// com uma espera fixa. Só retorna quando ctx é cancelado, sempre com nil.
func (c *Client) Run(ctx context.Context) error {
	auth := NewAuthenticator(c.httpClient, c.origin)
	streams := NewStreamDialer(c.dialer, c.origin, c.shards)

	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return nil
		}

		err := c.runSession(ctx, auth, streams, attempt)
		if ctx.Err() != nil {
			c.logger.Info().Msg("interrompido, encerrando")
			return nil
		}

		c.logFailure(err, attempt)
		c.OnError(err)

		select {
		case <-ctx.Done():
			c.logger.Info().Msg("interrompido, encerrando")
			return nil
		case <-c.clock.After(c.retryDelay):
		}
	}
}

// runSession executa uma tentativa completa: login, conexão e loop de leitura.
// Nada da tentativa (sessão, conexão, watchdog) sobrevive ao retorno.
func (c *Client) runSession(ctx context.Context, auth *Authenticator, streams *StreamDialer, attempt int) error {
	logger := c.logger.With().Str("attempt_id", uuid.NewString()).Int("attempt", attempt).Logger()

	logger.Info().Str("identity", c.creds.Identity).Msg("autenticando")
	session, err := auth.Login(ctx, c.creds)
	if err != nil {
		return err
	}

	stream, err := streams.Open(ctx, session)
	if err != nil {
		return err
	}
	defer stream.Close()
	logger.Info().Str("shard", stream.Shard()).Msg("conexão criada")

	// Cancelamento do usuário desbloqueia a leitura pendente
	stop := context.AfterFunc(ctx, func() { _ = stream.Close() })
	defer stop()

	wd := newWatchdog(c.clock, stream.Close, c.idleTimeout, c.pollInterval, logger)
	wdCtx, cancelWd := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		wd.run(wdCtx)
	}()
	defer wg.Wait()
	defer cancelWd()

	dispatchCtx := ContextWithSession(ctx, session)
	for {
		msg, err := stream.Next()
		if err != nil {
			if wd.stalled() {
				return &StreamError{Kind: ErrStalled, Err: err}
			}
			return err
		}
		wd.touch()

		logger.Trace().Str("type", msg.Type).Msg("mensagem recebida")
		if err := c.handlers.Dispatch(dispatchCtx, msg); err != nil {
			return &HandlerError{Type: msg.Type, Err: err}
		}
	}
}

// logFailure registra o erro de acordo com o seu tipo
func (c *Client) logFailure(err error, attempt int) {
	var (
		authErr    *AuthError
		streamErr  *StreamError
		handlerErr *HandlerError
		kind       string
	)
	switch {
	case errors.As(err, &authErr):
		kind = "auth"
		if errors.Is(err, ErrInvalidCredentials) {
			kind = "auth.invalid_credentials"
		}
	case errors.As(err, &streamErr):
		kind = "stream"
		if errors.Is(err, ErrStalled) {
			kind = "stream.stalled"
		}
	case errors.As(err, &handlerErr):
		kind = "handler"
	default:
		kind = "unknown"
	}

	c.logger.Error().
		Err(err).
		Str("kind", kind).
		Int("attempt", attempt).
		Dur("retry_in", c.retryDelay).
		Msgf("desconectado, reconectando em %v", c.retryDelay)
}
