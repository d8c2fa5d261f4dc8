// Package config lê e grava o arquivo TOML do keeper.
//
// Exemplo de arquivo:
//
//	[auth]
//	email = "alice@example.com"
//	password = "segredo"
//
//	[connection]
//	retry_delay = "30s"
//	idle_timeout = "2m"
//	poll_interval = "5s"
//	origin = "https://www.irccloud.com"
//	shards = ["wss://api.irccloud.com/websocket/1"]
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	irccloud "github.com/NPChat/go-irccloud"
)

const DefaultPath = "secret.toml"

// File é o conteúdo efetivo do arquivo, já mesclado com os padrões
type File struct {
	Auth       Auth
	Connection Connection
}

type Auth struct {
	Email    string
	Password string
}

// Complete informa se há email e senha
func (a Auth) Complete() bool {
	return a.Email != "" && a.Password != ""
}

type Connection struct {
	Origin       string
	Shards       []string
	RetryDelay   time.Duration
	IdleTimeout  time.Duration
	PollInterval time.Duration
}

// Options converte a seção [connection] em opções do cliente
func (c Connection) Options() []irccloud.Option {
	opts := []irccloud.Option{
		irccloud.WithOrigin(c.Origin),
		irccloud.WithRetryDelay(c.RetryDelay),
		irccloud.WithIdleTimeout(c.IdleTimeout),
		irccloud.WithPollInterval(c.PollInterval),
	}
	if len(c.Shards) > 0 {
		opts = append(opts, irccloud.WithShards(c.Shards...))
	}
	return opts
}

type rawFile struct {
	Auth       rawAuth       `toml:"auth"`
	Connection rawConnection `toml:"connection"`
}

type rawAuth struct {
	Email    string `toml:"email"`
	Password string `toml:"password"`
}

type rawConnection struct {
	Origin       string   `toml:"origin,omitempty"`
	Shards       []string `toml:"shards,omitempty"`
	RetryDelay   string   `toml:"retry_delay,omitempty"`
	IdleTimeout  string   `toml:"idle_timeout,omitempty"`
	PollInterval string   `toml:"poll_interval,omitempty"`
}

// Default devolve a configuração sem credenciais e com os tempos padrão
func Default() File {
	return File{
		Connection: Connection{
			Origin:       irccloud.DefaultOrigin,
			RetryDelay:   irccloud.DefaultRetryDelay,
			IdleTimeout:  irccloud.DefaultIdleTimeout,
			PollInterval: irccloud.DefaultPollInterval,
		},
	}
}

// Load lê path sobre os padrões. Se o arquivo não existir o erro satisfaz
// errors.Is(err, fs.ErrNotExist).
func Load(path string) (File, error) {
	cfg := Default()

	var raw rawFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("auth", "email") {
		cfg.Auth.Email = strings.TrimSpace(raw.Auth.Email)
	}
	if meta.IsDefined("auth", "password") {
		cfg.Auth.Password = raw.Auth.Password
	}

	if meta.IsDefined("connection", "origin") {
		origin := strings.TrimSpace(raw.Connection.Origin)
		if origin != "" {
			cfg.Connection.Origin = origin
		}
	}
	if meta.IsDefined("connection", "shards") {
		cfg.Connection.Shards = normalizeShards(raw.Connection.Shards)
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"retry_delay", raw.Connection.RetryDelay, &cfg.Connection.RetryDelay},
		{"idle_timeout", raw.Connection.IdleTimeout, &cfg.Connection.IdleTimeout},
		{"poll_interval", raw.Connection.PollInterval, &cfg.Connection.PollInterval},
	}
	for _, d := range durations {
		if !meta.IsDefined("connection", d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return cfg, fmt.Errorf("parse %s: %w", d.key, err)
		}
		if v <= 0 {
			return cfg, fmt.Errorf("parse %s: duração deve ser positiva", d.key)
		}
		*d.dst = v
	}

	return cfg, nil
}

// LoadOrDefault é como Load, mas um arquivo inexistente não é erro
func LoadOrDefault(path string) (File, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// SaveAuth grava as credenciais em path preservando a seção [connection].
// Um arquivo ilegível é sobrescrito por inteiro. O arquivo é escrito com
// permissão 0600.
func SaveAuth(path string, auth Auth) error {
	var raw rawFile
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		raw = rawFile{}
	}
	raw.Auth = rawAuth{Email: auth.Email, Password: auth.Password}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(raw); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return os.Chmod(path, 0o600)
}

func normalizeShards(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		v := strings.TrimSpace(s)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
