// Package irccloud implementa um cliente resiliente e não-oficial que mantém uma sessão do IRCCloud sempre conectada.
//
// O foco é manter uma única sessão viva indefinidamente: o cliente faz login na API HTTP,
// abre o stream WebSocket em um dos shards e reconecta do zero (login incluso) após
// qualquer falha, sempre com a mesma espera fixa. Um watchdog fecha conexões que ficam
// silenciosas por tempo demais, o que também leva a uma reconexão.
//
// Uso Básico
//
//	client := irccloud.New(irccloud.Credentials{Identity: "email@exemplo.com", Secret: "senha"})
//	client.Handle("buffer_msg", func(ctx context.Context, msg irccloud.Message) error {
//	    var m struct{ Msg string `json:"msg"` }
//	    return msg.Decode(&m)
//	})
//	client.Run(ctx) // retorna apenas quando ctx é cancelado
//
// Handlers
//
// As mensagens são despachadas pelo campo "type", em ordem de chegada, uma de cada vez.
// Tipos sem handler são ignorados. Um handler que devolve erro encerra a sessão atual,
// e o cliente reconecta após a espera.
//
// Configuração Avançada
//
// Os tempos e endpoints podem ser alterados com Functional Options:
//
//	client := irccloud.New(creds,
//	    irccloud.WithRetryDelay(10*time.Second),
//	    irccloud.WithIdleTimeout(2*time.Minute),
//	)
package irccloud
