// Package domain define contratos e tipos de domínio do gateway de contato.
//
// Este pacote não depende de net/http nem de implementações concretas.
// A intenção é permitir testes de unidade puros e desacoplar a regra do pipeline
// (rate limit -> captcha -> envio de email) dos detalhes de infraestrutura.
package domain
