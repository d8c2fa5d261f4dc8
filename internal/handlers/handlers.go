// Package handlers contém os handlers de mensagens registrados pelo keeper.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"

	irccloud "github.com/NPChat/go-irccloud"
)

// Register registra todos os handlers do keeper em h
func Register(h *irccloud.Handlers, httpClient *http.Client, origin string, logger zerolog.Logger) error {
	if err := h.Handle("header", Header(logger)); err != nil {
		return err
	}
	return h.Handle("oob_include", OOBInclude(httpClient, origin, logger))
}

// Header registra os dados do primeiro frame de cada conexão
func Header(logger zerolog.Logger) irccloud.HandlerFunc {
	return func(ctx context.Context, msg irccloud.Message) error {
		var hdr struct {
			StreamID     string `json:"streamid"`
			IdleInterval int64  `json:"idle_interval"`
		}
		if err := msg.Decode(&hdr); err != nil {
			return fmt.Errorf("decodificar header: %w", err)
		}
		logger.Info().Str("streamid", hdr.StreamID).Int64("idle_interval_ms", hdr.IdleInterval).Msg("stream iniciado")
		return nil
	}
}

// OOBInclude baixa o backlog anunciado por um "oob_include".
// O servidor só considera o cliente ativo depois que o backlog é buscado.
func OOBInclude(httpClient *http.Client, origin string, logger zerolog.Logger) irccloud.HandlerFunc {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	origin = strings.TrimRight(origin, "/")

	return func(ctx context.Context, msg irccloud.Message) error {
		var oob struct {
			URL string `json:"url"`
		}
		if err := msg.Decode(&oob); err != nil {
			return fmt.Errorf("decodificar oob_include: %w", err)
		}
		if !strings.HasPrefix(oob.URL, "/") {
			return fmt.Errorf("oob_include: url inesperada %q", oob.URL)
		}

		session, ok := irccloud.SessionFromContext(ctx)
		if !ok {
			return errors.New("oob_include: sessão ausente no contexto")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+oob.URL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Cookie", "session="+session.Token)
		req.Header.Set("Accept-Encoding", "gzip")

		resp, err := httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("oob_include: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("oob_include: status %d", resp.StatusCode)
		}

		var body io.Reader = resp.Body
		if resp.Header.Get("Content-Encoding") == "gzip" {
			zr, err := gzip.NewReader(resp.Body)
			if err != nil {
				return fmt.Errorf("oob_include: gzip: %w", err)
			}
			defer zr.Close()
			body = zr
		}

		var backlog []json.RawMessage
		if err := json.NewDecoder(body).Decode(&backlog); err != nil {
			return fmt.Errorf("oob_include: decodificar backlog: %w", err)
		}

		logger.Debug().Int("events", len(backlog)).Str("url", oob.URL).Msg("backlog recebido")
		return nil
	}
}
