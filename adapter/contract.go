package adapter

import (
	"context"
	"strings"
	"testing"

	"github.com/iaconlabs/warpgate/gateway"
)

// RunFrameworkContract ejecuta la batería de pruebas común a todos los
// bindings de framework. La fábrica debe entregar un framework configurado
// con las rutas del contrato:
//
//	GET  /saludo    → 200, cuerpo "hola", cabecera X-Motor: warp
//	POST /eco       → 200, cuerpo igual al cuerpo de la petición
//	GET  /sonda     → 200, cuerpo igual a la cabecera X-Probe de la petición
//	GET  /consulta  → 200, cuerpo igual al parámetro "nombre" de la query
func RunFrameworkContract(t *testing.T, factory func() gateway.Framework) {
	t.Helper()

	t.Run("Ruta simple", func(t *testing.T) {
		resp := dispatch(t, factory(), ContractEnv("GET", "/saludo", "", nil, ""))

		if resp.Status != 200 {
			t.Fatalf("Esperado 200, obtenido %d", resp.Status)
		}
		if got := bodyText(resp.Body); got != "hola" {
			t.Errorf("Esperado 'hola', obtenido %q", got)
		}
		if got := headerValue(resp.Headers, "X-Motor"); got != "warp" {
			t.Errorf("La cabecera X-Motor no volvió del framework: %q", got)
		}
	})

	t.Run("El cuerpo llega al framework", func(t *testing.T) {
		resp := dispatch(t, factory(), ContractEnv("POST", "/eco", "", map[string]string{
			"CONTENT_TYPE":   "text/plain",
			"CONTENT_LENGTH": "12",
		}, "cuerpo-de-12"))

		if got := bodyText(resp.Body); got != "cuerpo-de-12" {
			t.Errorf("El eco del cuerpo falló: %q", got)
		}
	})

	t.Run("Las cabeceras llegan al framework", func(t *testing.T) {
		resp := dispatch(t, factory(), ContractEnv("GET", "/sonda", "", map[string]string{
			"HTTP_X_PROBE": "valor-sonda",
		}, ""))

		if got := bodyText(resp.Body); got != "valor-sonda" {
			t.Errorf("La cabecera X-Probe no llegó normalizada: %q", got)
		}
	})

	t.Run("La query llega al framework", func(t *testing.T) {
		resp := dispatch(t, factory(), ContractEnv("GET", "/consulta", "nombre=ana", nil, ""))

		if got := bodyText(resp.Body); got != "ana" {
			t.Errorf("El parámetro de query no llegó: %q", got)
		}
	})
}

// ContractEnv construye un Env de prueba con los campos mínimos que exige el
// contrato del protocolo.
func ContractEnv(method, uri, query string, extra map[string]string, body string) gateway.Env {
	vars := map[string]string{
		gateway.KeyMethod:      method,
		gateway.KeyRemoteAddr:  "127.0.0.1",
		gateway.KeyProtocol:    "HTTP/1.1",
		gateway.KeyServerName:  "contract.test",
		gateway.KeyServerPort:  "80",
		gateway.KeyRequestURI:  uri,
		gateway.KeyQueryString: query,
	}
	for k, v := range extra {
		vars[k] = v
	}
	env := gateway.Env{Vars: vars}
	if body != "" {
		env.Input = strings.NewReader(body)
	}
	return env
}

func dispatch(t *testing.T, fw gateway.Framework, env gateway.Env) gateway.Response {
	t.Helper()
	st := NewState(env)
	rc, err := fw.Dispatch(context.Background(), st)
	if err != nil {
		t.Fatalf("Dispatch devolvió error: %v", err)
	}
	return Normalize(rc, st)
}

// bodyText aplana cualquier variante del cuerpo para poder compararla.
func bodyText(b gateway.Body) string {
	var sb strings.Builder
	switch body := b.(type) {
	case gateway.Chunk:
		sb.Write(body)
	case gateway.Chunks:
		for _, c := range body {
			sb.Write(c)
		}
	case gateway.Stream:
		for {
			chunk, err := body.Next()
			sb.Write(chunk)
			if err != nil {
				break
			}
		}
	}
	return sb.String()
}

func headerValue(headers []gateway.Header, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}
