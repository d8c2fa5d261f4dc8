// irccloud-keeper mantém uma conta do IRCCloud conectada indefinidamente.
//
// As credenciais vêm, nesta ordem, de um argumento serializado, da seção
// [auth] do arquivo de configuração ou de um prompt interativo (que grava o
// arquivo para as próximas execuções). Depois disso o processo só termina com
// Ctrl-C; toda falha de rede ou autenticação leva a uma nova tentativa.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	irccloud "github.com/NPChat/go-irccloud"
	"github.com/NPChat/go-irccloud/internal/config"
	"github.com/NPChat/go-irccloud/internal/credentials"
	"github.com/NPChat/go-irccloud/internal/handlers"
	"github.com/NPChat/go-irccloud/internal/logging"
)

const appName = "irccloud-keeper"

// argumentError é o único erro fatal: entrada de inicialização inválida
type argumentError struct {
	msg string
}

func (e *argumentError) Error() string { return e.msg }

func (e *argumentError) ExitCode() int { return 1 }

func argumentErrorf(format string, args ...any) error {
	return &argumentError{msg: fmt.Sprintf(format, args...)}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr, credentials.TerminalPrompt()))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, prompt credentials.Source) int {
	err := execute(ctx, args, stdout, stderr, prompt)
	if err == nil {
		return 0
	}
	fmt.Fprintf(stderr, "%s: %v\n", appName, err)

	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return 1
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer, prompt credentials.Source) error {
	var (
		configPath string
		logLevel   string
		export     bool
	)

	flagSet := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&configPath, "config", config.DefaultPath, "arquivo TOML com [auth] e [connection]")
	flagSet.StringVar(&logLevel, "log-level", "", "nível de log (trace, debug, info, warn, error, off)")
	flagSet.BoolVar(&export, "export", false, "imprime as credenciais serializadas para uso como argumento e sai")
	flagSet.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s [flags] [credenciais-serializadas]\n\n", appName)
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return argumentErrorf("%v", err)
	}

	positional := flagSet.Args()
	if len(positional) > 1 {
		return argumentErrorf("too many arguments have been supplied")
	}

	logCfg := logging.FromEnv()
	if logLevel != "" {
		lvl, ok := logging.ParseLevel(logLevel)
		if !ok {
			return argumentErrorf("nível de log inválido: %q", logLevel)
		}
		logCfg.Level = lvl
	}
	logger := logging.New(appName, stderr, logCfg)

	// Argumento serializado é validado antes de qualquer acesso à rede
	var creds irccloud.Credentials
	if len(positional) == 1 {
		decoded, err := credentials.Decode(positional[0])
		if err != nil {
			return argumentErrorf("wrong arguments have been supplied (%v)", err)
		}
		creds = decoded
	}

	// Configuração corrompida não é fatal: valem os padrões e, sem argumento,
	// o prompt regrava o arquivo
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		logger.Warn().Err(err).Str("path", configPath).Msg("configuração ilegível, usando padrões")
		cfg = config.Default()
	}

	if len(positional) == 0 {
		resolver := credentials.Resolver{Path: configPath, Prompt: prompt, Logger: logger}
		creds, err = resolver.Provide()
		if err != nil {
			return err
		}
	}

	if export {
		fmt.Fprintln(stdout, credentials.Encode(creds))
		return nil
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	h := irccloud.NewHandlers()
	if err := handlers.Register(h, httpClient, cfg.Connection.Origin, logger); err != nil {
		return err
	}

	opts := append(cfg.Connection.Options(),
		irccloud.WithHTTPClient(httpClient),
		irccloud.WithHandlers(h),
		irccloud.WithLogger(logger),
	)
	client := irccloud.New(creds, opts...)
	if err := client.Run(ctx); err != nil {
		return err
	}

	logger.Info().Msg("goodbye")
	return nil
}
