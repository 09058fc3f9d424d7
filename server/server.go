// Package server is a hosting process manager for a warpgate Gate: an HTTP
// server that derives a gateway environment from every inbound request,
// runs the translation cycle and writes the resulting triple back. It
// supports graceful shutdown and configuration defaults.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/iaconlabs/warpgate"
	"github.com/iaconlabs/warpgate/gateway"
)

const (
	defaultTimeout      = 5 * time.Second
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 15 * time.Second
	defaultIdleTimeout  = 60 * time.Second
)

// Config defines the address, mount point and timeouts of the server.
type Config struct {
	Addr string
	// Script is the mount path reported to the gate as the script name.
	// Empty means the application is mounted at the root.
	Script       string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Server hosts one Gate behind a standard [http.Server].
type Server struct {
	cfg        Config
	gate       *warpgate.Gate
	httpServer *http.Server
	ln         net.Listener
	addr       string
	mu         sync.RWMutex
	ready      chan struct{}
}

// New initializes a Server with the given config and gate.
func New(cfg Config, gate *warpgate.Gate) *Server {
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}

	s := &Server{
		cfg:   cfg,
		gate:  gate,
		ready: make(chan struct{}),
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      http.HandlerFunc(s.serve),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Start runs the server. The call blocks until the server is closed.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.ln = ln
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	close(s.ready) // Addr() is now available

	err = s.httpServer.Serve(ln)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Shutdown gracefully shuts down the server without interrupting active
// connections.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the network address the server is listening on. It waits for
// the server to be ready, making it safe for tests with dynamic ports.
func (s *Server) Addr() string {
	select {
	case <-s.ready:
		// listener bound
	case <-time.After(defaultTimeout):
		return ""
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// serve runs one request cycle: environment in, triple out.
func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	resp := s.gate.Process(r.Context(), EnvFromRequest(r, s.cfg.Script))

	hdr := w.Header()
	for _, h := range resp.Headers {
		hdr.Add(h.Name, h.Value)
	}
	w.WriteHeader(resp.Status)
	writeBody(w, resp.Body)
}

// EnvFromRequest derives the gateway environment mapping from an inbound
// request, following the CGI variable conventions: HTTP_ prefixed header
// keys, CONTENT_TYPE and CONTENT_LENGTH kept whole, and the scheme flag
// taken from the TLS state of the connection.
func EnvFromRequest(r *http.Request, script string) gateway.Env {
	serverName, serverPort := splitHostPort(r.Host, r.TLS != nil)
	remoteAddr := r.RemoteAddr
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		remoteAddr = host
	}

	scheme := gateway.SchemeHTTP
	if r.TLS != nil {
		scheme = gateway.SchemeHTTPS
	}

	vars := map[string]string{
		gateway.KeyMethod:      r.Method,
		gateway.KeyRemoteAddr:  remoteAddr,
		gateway.KeyProtocol:    r.Proto,
		gateway.KeyServerName:  serverName,
		gateway.KeyServerPort:  serverPort,
		gateway.KeyScriptName:  script,
		gateway.KeyRequestURI:  r.URL.RequestURI(),
		gateway.KeyQueryString: r.URL.RawQuery,
		gateway.KeyHost:        r.Host,
		gateway.KeyURLScheme:   scheme,
	}

	if user, _, ok := r.BasicAuth(); ok {
		vars[gateway.KeyRemoteUser] = user
	}

	for name, values := range r.Header {
		key := strings.ReplaceAll(strings.ToUpper(name), "-", "_")
		switch key {
		case "CONTENT_TYPE", "CONTENT_LENGTH":
			// CGI convention: these two carry no HTTP_ prefix
		default:
			key = "HTTP_" + key
		}
		vars[key] = strings.Join(values, ", ")
	}

	return gateway.Env{Vars: vars, Input: r.Body}
}

// writeBody streams the body variant out to the client. Stream bodies are
// iterated until exhaustion and flushed per fragment.
func writeBody(w http.ResponseWriter, body gateway.Body) {
	switch b := body.(type) {
	case gateway.Chunk:
		_, _ = w.Write(b)
	case gateway.Chunks:
		for _, chunk := range b {
			_, _ = w.Write(chunk)
		}
	case gateway.Stream:
		flusher, _ := w.(http.Flusher)
		for {
			chunk, err := b.Next()
			if len(chunk) > 0 {
				if _, werr := w.Write(chunk); werr != nil {
					return
				}
				if flusher != nil {
					flusher.Flush()
				}
			}
			if err != nil {
				return
			}
		}
	}
}

func splitHostPort(host string, secure bool) (string, string) {
	if name, port, err := net.SplitHostPort(host); err == nil {
		return name, port
	}
	if secure {
		return host, "443"
	}
	return host, "80"
}
