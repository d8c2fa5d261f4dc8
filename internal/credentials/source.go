// Package credentials fornece as credenciais do IRCCloud ao keeper: do arquivo
// de configuração, de um prompt interativo ou de um argumento serializado.
package credentials

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	irccloud "github.com/NPChat/go-irccloud"
	"github.com/NPChat/go-irccloud/internal/config"
)

var (
	ErrNotFound    = errors.New("credentials: nenhuma credencial configurada")
	ErrNoTerminal  = errors.New("credentials: nenhum terminal disponível para o prompt")
	ErrEmptyAnswer = errors.New("credentials: email ou senha vazios")
)

// Source fornece um par (identidade, segredo)
type Source interface {
	Provide() (irccloud.Credentials, error)
}

// FileSource lê a seção [auth] do arquivo de configuração
type FileSource struct {
	Path string
}

func (s FileSource) Provide() (irccloud.Credentials, error) {
	cfg, err := config.Load(s.Path)
	if err != nil {
		return irccloud.Credentials{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if !cfg.Auth.Complete() {
		return irccloud.Credentials{}, ErrNotFound
	}
	return irccloud.Credentials{Identity: cfg.Auth.Email, Secret: cfg.Auth.Password}, nil
}

// PromptSource pergunta email e senha. A senha é lida sem eco por ReadPassword.
type PromptSource struct {
	In           io.Reader
	Out          io.Writer
	ReadPassword func() ([]byte, error)
}

// TerminalPrompt cria um PromptSource ligado ao stdin/stderr do processo
func TerminalPrompt() PromptSource {
	fd := int(os.Stdin.Fd())
	return PromptSource{
		In:  os.Stdin,
		Out: os.Stderr,
		ReadPassword: func() ([]byte, error) {
			if !term.IsTerminal(fd) {
				return nil, ErrNoTerminal
			}
			return term.ReadPassword(fd)
		},
	}
}

func (s PromptSource) Provide() (irccloud.Credentials, error) {
	fmt.Fprint(s.Out, "Enter your IRCCloud email: ")
	email, err := bufio.NewReader(s.In).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && email != "") {
		return irccloud.Credentials{}, fmt.Errorf("ler email: %w", err)
	}

	fmt.Fprint(s.Out, "Enter your IRCCloud password: ")
	password, err := s.ReadPassword()
	fmt.Fprintln(s.Out)
	if err != nil {
		return irccloud.Credentials{}, fmt.Errorf("ler senha: %w", err)
	}

	creds := irccloud.Credentials{
		Identity: strings.TrimSpace(email),
		Secret:   strings.TrimRight(string(password), "\r\n"),
	}
	if creds.Identity == "" || creds.Secret == "" {
		return irccloud.Credentials{}, ErrEmptyAnswer
	}
	return creds, nil
}

// Resolver tenta o arquivo e, se não houver credenciais, pergunta ao usuário
// e grava a resposta no arquivo. Falha ao gravar é apenas registrada.
type Resolver struct {
	Path   string
	Prompt Source
	Logger zerolog.Logger
}

func (r Resolver) Provide() (irccloud.Credentials, error) {
	creds, err := FileSource{Path: r.Path}.Provide()
	if err == nil {
		r.Logger.Info().Str("path", r.Path).Msg("configuração carregada")
		return creds, nil
	}
	r.Logger.Warn().Str("path", r.Path).Msg("nenhuma configuração encontrada (ou configuração corrompida)")

	creds, err = r.Prompt.Provide()
	if err != nil {
		return irccloud.Credentials{}, err
	}

	if err := config.SaveAuth(r.Path, config.Auth{Email: creds.Identity, Password: creds.Secret}); err != nil {
		r.Logger.Error().Err(err).Str("path", r.Path).Msg("falha ao salvar configuração")
	} else {
		r.Logger.Info().Str("path", r.Path).Msg("configuração salva")
	}
	return creds, nil
}
