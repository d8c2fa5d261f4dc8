package irccloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	formTokenPath = "/chat/auth-formtoken"
	loginPath     = "/chat/login"
)

// Authenticator faz o handshake de login na API HTTP
type Authenticator struct {
	httpClient *http.Client
	origin     string
}

// NewAuthenticator cria um Authenticator para a origem informada (ex: https://www.irccloud.com)
func NewAuthenticator(httpClient *http.Client, origin string) *Authenticator {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Authenticator{
		httpClient: httpClient,
		origin:     strings.TrimRight(origin, "/"),
	}
}

// Login obtém o token anti-CSRF, envia as credenciais e devolve a sessão.
// Uma resposta bem formada sem o campo "session" resulta em ErrInvalidCredentials;
// qualquer falha de rede ou corpo ilegível resulta em ErrAuthTransport.
func (a *Authenticator) Login(ctx context.Context, creds Credentials) (Session, error) {
	token, err := a.formToken(ctx)
	if err != nil {
		return Session{}, &AuthError{Kind: ErrAuthTransport, Err: err}
	}

	form := url.Values{}
	form.Set("email", creds.Identity)
	form.Set("password", creds.Secret)
	form.Set("token", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.origin+loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return Session{}, &AuthError{Kind: ErrAuthTransport, Err: err}
	}
	a.setHeaders(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Auth-Formtoken", token)

	// Só a presença do campo importa, qualquer que seja o valor
	var data map[string]json.RawMessage
	if err := a.doJSON(req, &data); err != nil {
		return Session{}, &AuthError{Kind: ErrAuthTransport, Err: fmt.Errorf("login: %w", err)}
	}

	raw, ok := data["session"]
	if !ok {
		return Session{}, &AuthError{Kind: ErrInvalidCredentials}
	}
	return Session{Token: sessionToken(raw)}, nil
}

// sessionToken devolve o texto de uma string JSON ou o valor cru nos demais casos
func sessionToken(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// formToken pede o token anti-CSRF exigido pelo endpoint de login
func (a *Authenticator) formToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.origin+formTokenPath, http.NoBody)
	if err != nil {
		return "", err
	}
	a.setHeaders(req)
	req.ContentLength = 0

	var data struct {
		Token string `json:"token"`
	}
	if err := a.doJSON(req, &data); err != nil {
		return "", fmt.Errorf("auth-formtoken: %w", err)
	}
	if data.Token == "" {
		return "", errors.New("auth-formtoken: token não encontrado na resposta")
	}
	return data.Token, nil
}

func (a *Authenticator) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Origin", a.origin)
}

// doJSON executa a requisição e decodifica o corpo, independente do status
func (a *Authenticator) doJSON(req *http.Request, v any) error {
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("erro ao decodificar JSON (status %d): %w", resp.StatusCode, err)
	}
	return nil
}
