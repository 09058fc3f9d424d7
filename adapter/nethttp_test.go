package adapter

import (
	"io"
	"net/http"
	"reflect"
	"strings"
	"testing"

	"github.com/iaconlabs/warpgate/gateway"
)

func populatedHTTPContext(t *testing.T, extra map[string]string) *HTTPRequestContext {
	t.Helper()
	rc := NewHTTPRequestContext()
	if err := Populate(rc, uriEnv(extra)); err != nil {
		t.Fatalf("Populate devolvió error: %v", err)
	}
	return rc
}

func TestHTTPRequestContextMaterializes(t *testing.T) {
	rc := populatedHTTPContext(t, map[string]string{
		gateway.KeyMethod:     "POST",
		gateway.KeyRemoteAddr: "10.1.2.3",
		gateway.KeyProtocol:   "HTTP/1.0",
		"HTTP_X_PROBE":        "v",
		"CONTENT_TYPE":        "text/plain",
	})

	req, err := rc.Request(strings.NewReader("cuerpo"))
	if err != nil {
		t.Fatalf("Request devolvió error: %v", err)
	}

	if req.Method != "POST" || req.Host != "example.com" {
		t.Errorf("Método u host incorrectos: %s %s", req.Method, req.Host)
	}
	if req.RemoteAddr != "10.1.2.3" {
		t.Errorf("RemoteAddr esperado 10.1.2.3, obtenido %q", req.RemoteAddr)
	}
	if req.Proto != "HTTP/1.0" || req.ProtoMajor != 1 || req.ProtoMinor != 0 {
		t.Errorf("Versión de protocolo incorrecta: %s %d.%d", req.Proto, req.ProtoMajor, req.ProtoMinor)
	}
	if req.Header.Get("X-Probe") != "v" || req.Header.Get("Content-Type") != "text/plain" {
		t.Errorf("Cabeceras incorrectas: %v", req.Header)
	}

	body, _ := io.ReadAll(req.Body)
	if string(body) != "cuerpo" {
		t.Errorf("El cuerpo no llegó al request: %q", body)
	}
}

func TestHTTPRequestContextQuery(t *testing.T) {
	rc := populatedHTTPContext(t, map[string]string{
		gateway.KeyMethod:      "GET",
		gateway.KeyRequestURI:  "/app/foo?nombre=ana",
		gateway.KeyQueryString: "nombre=ana&n=2",
	})

	if got := rc.Query().Get("nombre"); got != "ana" {
		t.Errorf("Query esperada nombre=ana, obtenida %q", got)
	}

	req, err := rc.Request(nil)
	if err != nil {
		t.Fatalf("Request devolvió error: %v", err)
	}
	if got := req.Form.Get("n"); got != "2" {
		t.Errorf("El formulario debía precargarse con la query: %q", got)
	}
}

// TestHTTPRequestContextWithoutURI: materializar antes de poblar la URI es
// un error identificable.
func TestHTTPRequestContextWithoutURI(t *testing.T) {
	rc := NewHTTPRequestContext()
	rc.SetMethod("GET")

	if _, err := rc.Request(nil); err != ErrNoURI {
		t.Errorf("Se esperaba ErrNoURI, obtenido %v", err)
	}
}

func TestRecorderDefaults(t *testing.T) {
	rec := NewRecorder()

	if rec.Status() != http.StatusOK {
		t.Errorf("Estado por defecto esperado 200, obtenido %d", rec.Status())
	}
	body, ok := rec.Body().(gateway.Chunk)
	if !ok || len(body) != 0 {
		t.Errorf("Cuerpo por defecto esperado vacío: %v", rec.Body())
	}
}

func TestRecorderFirstWriteHeaderWins(t *testing.T) {
	rec := NewRecorder()
	rec.WriteHeader(http.StatusNotFound)
	rec.WriteHeader(http.StatusOK) // ignorado, como en net/http

	if rec.Status() != http.StatusNotFound {
		t.Errorf("Estado esperado 404, obtenido %d", rec.Status())
	}
}

func TestRecorderHeadersDrained(t *testing.T) {
	rec := NewRecorder()
	rec.Header().Set("Content-Type", "text/html")
	rec.Header().Add("X-Multi", "1")
	rec.Header().Add("X-Multi", "2")
	_, _ = rec.Write([]byte("hola"))

	want := []gateway.Header{
		{Name: "Content-Type", Value: "text/html"},
		{Name: "X-Multi", Value: "1"},
		{Name: "X-Multi", Value: "2"},
	}
	if got := rec.Headers(); !reflect.DeepEqual(got, want) {
		t.Errorf("Drenado de cabeceras incorrecto: %v", got)
	}
	if body := rec.Body().(gateway.Chunk); string(body) != "hola" {
		t.Errorf("Cuerpo grabado incorrecto: %q", body)
	}
}
