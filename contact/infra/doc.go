// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - MemoryStore / RedisStore: janela fixa por cliente (em memória ou compartilhada)
//   - MemoryLocker / RedisLocker: trava por cliente durante o pipeline
//   - RecaptchaVerifier: verificação do token na autoridade externa
//   - SMTPDispatcher: envio autenticado via relay SMTP
//   - FloodStore: token bucket por chave usando golang.org/x/time/rate
//   - ChanPool: semáforo simples para limite de concorrência
package infra
