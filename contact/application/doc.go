// Package application contém os casos de uso do gateway de contato.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: Gateway.Submit(ctx, id, sub) percorre o pipeline e retorna um domain.Outcome.
package application
