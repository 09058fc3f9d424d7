package ginadapter_test

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/iaconlabs/warpgate/adapter"
	"github.com/iaconlabs/warpgate/adapter/ginadapter"
	"github.com/iaconlabs/warpgate/gateway"
)

func contractEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	e := gin.New()
	e.GET("/saludo", func(c *gin.Context) {
		c.Header("X-Motor", "warp")
		c.String(http.StatusOK, "hola")
	})
	e.POST("/eco", func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.Data(http.StatusOK, "text/plain", body)
	})
	e.GET("/sonda", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetHeader("X-Probe"))
	})
	e.GET("/consulta", func(c *gin.Context) {
		c.String(http.StatusOK, c.Query("nombre"))
	})
	return e
}

func TestContractGin(t *testing.T) {
	adapter.RunFrameworkContract(t, func() gateway.Framework {
		return ginadapter.New(contractEngine())
	})
}

func TestGinStatusPropagates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	e := gin.New()
	e.GET("/crea", func(c *gin.Context) {
		c.String(http.StatusCreated, "creado")
	})

	st := adapter.NewState(adapter.ContractEnv("GET", "/crea", "", nil, ""))
	rc, err := ginadapter.New(e).Dispatch(context.Background(), st)
	if err != nil {
		t.Fatalf("Dispatch devolvió error: %v", err)
	}
	if rc.Status() != http.StatusCreated {
		t.Errorf("Estado esperado 201, obtenido %d", rc.Status())
	}
}

func TestGinNilEngine(t *testing.T) {
	st := adapter.NewState(gateway.Env{})
	if _, err := ginadapter.New(nil).Dispatch(context.Background(), st); err != ginadapter.ErrNilEngine {
		t.Errorf("Se esperaba ErrNilEngine, obtenido %v", err)
	}
}
