package ws

import (
	"net/http"
	"strings"
)

// AllowOrigins monta o CheckOrigin do upgrader a partir de CORS_ORIGIN
// (lista separada por vírgula). "" ou "*" libera qualquer origem; requisições
// sem Origin (clientes que não são navegador) também passam.
func AllowOrigins(origins string) func(r *http.Request) bool {
	allowed := make(map[string]struct{})
	for _, o := range strings.Split(origins, ",") {
		o = strings.TrimSpace(o)
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			allowed[strings.TrimRight(o, "/")] = struct{}{}
		}
	}
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
