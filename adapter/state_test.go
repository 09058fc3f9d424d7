package adapter

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/iaconlabs/warpgate/gateway"
)

func TestStateWriteAccumulates(t *testing.T) {
	st := NewState(gateway.Env{})

	if _, err := st.Write([]byte("hola ")); err != nil {
		t.Fatalf("Write devolvió error: %v", err)
	}
	if _, err := st.WriteString("mundo"); err != nil {
		t.Fatalf("WriteString devolvió error: %v", err)
	}

	if got := string(st.Buffered()); got != "hola mundo" {
		t.Errorf("Búfer esperado 'hola mundo', obtenido %q", got)
	}
}

// TestStateEmptyWriteIsNoop: escribir un fragmento vacío jamás altera el
// búfer ni produce error.
func TestStateEmptyWriteIsNoop(t *testing.T) {
	st := NewState(gateway.Env{})
	_, _ = st.Write([]byte("contenido"))

	n, err := st.Write(nil)
	if n != 0 || err != nil {
		t.Errorf("Write(nil) debía ser no-op: n=%d err=%v", n, err)
	}
	n, err = st.Write([]byte{})
	if n != 0 || err != nil {
		t.Errorf("Write(vacío) debía ser no-op: n=%d err=%v", n, err)
	}
	n, err = st.WriteString("")
	if n != 0 || err != nil {
		t.Errorf("WriteString(\"\") debía ser no-op: n=%d err=%v", n, err)
	}

	if got := string(st.Buffered()); got != "contenido" || st.Len() != 9 {
		t.Errorf("El búfer cambió: %q (len %d)", got, st.Len())
	}
}

func TestStateReadForwards(t *testing.T) {
	st := NewState(gateway.Env{Input: strings.NewReader("cuerpo")})

	out, err := io.ReadAll(st)
	if err != nil {
		t.Fatalf("ReadAll devolvió error: %v", err)
	}
	if string(out) != "cuerpo" {
		t.Errorf("Lectura esperada 'cuerpo', obtenida %q", out)
	}
}

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

// TestStateReadErrorsPropagate: los errores del flujo de entrada llegan tal
// cual, sin traducción ni reintento.
func TestStateReadErrorsPropagate(t *testing.T) {
	boom := errors.New("fallo de lectura")
	st := NewState(gateway.Env{Input: failingReader{err: boom}})

	if _, err := st.Read(make([]byte, 8)); !errors.Is(err, boom) {
		t.Errorf("Se esperaba el error original, obtenido %v", err)
	}
}

func TestStateReadWithoutInput(t *testing.T) {
	st := NewState(gateway.Env{})
	if _, err := st.Read(make([]byte, 8)); err != io.EOF {
		t.Errorf("Sin flujo de entrada se esperaba io.EOF, obtenido %v", err)
	}
}

func TestStateCloseIsNoop(t *testing.T) {
	st := NewState(gateway.Env{})
	_, _ = st.WriteString("algo")
	if err := st.Close(); err != nil {
		t.Errorf("Close debía ser no-op: %v", err)
	}
	if string(st.Buffered()) != "algo" {
		t.Error("Close no debe tocar el búfer")
	}
}
