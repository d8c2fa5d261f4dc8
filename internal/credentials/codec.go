package credentials

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	irccloud "github.com/NPChat/go-irccloud"
)

var ErrMalformed = errors.New("credentials: argumento serializado inválido")

type packed struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Encode empacota as credenciais em um único argumento de linha de comando
func Encode(c irccloud.Credentials) string {
	data, _ := json.Marshal(packed{Email: c.Identity, Password: c.Secret})
	return base64.RawURLEncoding.EncodeToString(data)
}

// Decode desfaz Encode. Aceita base64 padrão ou URL, com ou sem padding.
func Decode(s string) (irccloud.Credentials, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return irccloud.Credentials{}, fmt.Errorf("%w: vazio", ErrMalformed)
	}

	data, err := decodeBase64(s)
	if err != nil {
		return irccloud.Credentials{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var p packed
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return irccloud.Credentials{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if p.Email == "" || p.Password == "" {
		return irccloud.Credentials{}, fmt.Errorf("%w: email ou senha ausente", ErrMalformed)
	}
	return irccloud.Credentials{Identity: p.Email, Secret: p.Password}, nil
}

func decodeBase64(s string) ([]byte, error) {
	trimmed := strings.TrimRight(s, "=")
	if strings.ContainsAny(trimmed, "+/") {
		return base64.RawStdEncoding.DecodeString(trimmed)
	}
	return base64.RawURLEncoding.DecodeString(trimmed)
}
