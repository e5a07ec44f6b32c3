// Package contact fornece os adapters HTTP (net/http) do gateway de contato.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: o pipeline da submissão (rate limit -> captcha -> email)
//   - infra: implementações concretas (memória, Redis, reCAPTCHA, SMTP, token bucket)
//   - contact (este pacote): handler, extração de chave, middlewares, router e
//     tradução de domain.Outcome para status/headers/JSON
//
// Fluxo no gateway:
//
//  1. Extrai a chave do cliente (header/XFF/RemoteAddr)
//  2. Decodifica o JSON e chama application.Gateway.Submit
//  3. Traduz o resultado: 200, 400, 429 (com X-RateLimit-*), 500 ou 503
package contact
