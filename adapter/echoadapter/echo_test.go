package echoadapter_test

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iaconlabs/warpgate/adapter"
	"github.com/iaconlabs/warpgate/adapter/echoadapter"
	"github.com/iaconlabs/warpgate/gateway"
)

func contractEcho() *echo.Echo {
	e := echo.New()
	e.GET("/saludo", func(c echo.Context) error {
		c.Response().Header().Set("X-Motor", "warp")
		return c.String(http.StatusOK, "hola")
	})
	e.POST("/eco", func(c echo.Context) error {
		body, _ := io.ReadAll(c.Request().Body)
		return c.Blob(http.StatusOK, "text/plain", body)
	})
	e.GET("/sonda", func(c echo.Context) error {
		return c.String(http.StatusOK, c.Request().Header.Get("X-Probe"))
	})
	e.GET("/consulta", func(c echo.Context) error {
		return c.String(http.StatusOK, c.QueryParam("nombre"))
	})
	return e
}

func TestContractEcho(t *testing.T) {
	adapter.RunFrameworkContract(t, func() gateway.Framework {
		return echoadapter.New(contractEcho())
	})
}

// TestEchoErrorBecomesResponse: Echo convierte los errores de handler en
// respuesta HTTP por sí mismo, así que el despacho sigue siendo exitoso.
func TestEchoErrorBecomesResponse(t *testing.T) {
	e := echo.New()
	e.GET("/roto", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "sin té")
	})

	st := adapter.NewState(adapter.ContractEnv("GET", "/roto", "", nil, ""))
	rc, err := echoadapter.New(e).Dispatch(context.Background(), st)
	if err != nil {
		t.Fatalf("Dispatch devolvió error: %v", err)
	}
	if rc.Status() != http.StatusTeapot {
		t.Errorf("Estado esperado 418, obtenido %d", rc.Status())
	}
}

func TestEchoNilInstance(t *testing.T) {
	st := adapter.NewState(gateway.Env{})
	if _, err := echoadapter.New(nil).Dispatch(context.Background(), st); err != echoadapter.ErrNilEcho {
		t.Errorf("Se esperaba ErrNilEcho, obtenido %v", err)
	}
}
