package travel

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/auth"
	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/server"
)

// ShutdownTimeout bounds the graceful shutdown of the HTTP transport
const ShutdownTimeout = 25 * time.Second

// ServeStdio answers JSON-RPC frames read from in on out until in is closed
// or ctx is cancelled. Nothing but protocol frames is written to out.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := mcpserver.NewStdioServer(s.mcp)
	errWriter := s.logger.WriterLevel(logrus.ErrorLevel)
	defer errWriter.Close()
	stdio.SetErrorLogger(log.New(errWriter, "", 0))
	stdio.SetContextFunc(func(ctx context.Context) context.Context {
		return auth.WithAuthContext(ctx, &auth.AuthContext{Token: s.opts.APIKey, Source: auth.SourceConfig})
	})

	s.logger.Info("Serving MCP over stdio")
	err := stdio.Listen(ctx, in, out)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// HTTPHandler returns the HTTP surface: the streamable MCP endpoint plus
// health, swagger and search history routes.
func (s *Server) HTTPHandler() (http.Handler, error) {
	history := s.opts.History != nil

	doc, err := server.BuildOpenAPIDocument(s.opts.Version, history)
	if err != nil {
		return nil, err
	}

	streamable := mcpserver.NewStreamableHTTPServer(s.mcp,
		mcpserver.WithEndpointPath(server.PathMCP),
		mcpserver.WithHTTPContextFunc(mcpserver.HTTPContextFunc(server.SecureAuthContextFunc(s.opts.APIKey))),
	)

	mux := http.NewServeMux()
	mux.Handle(server.PathMCP, streamable)
	mux.HandleFunc("GET "+server.PathHealth, server.HandleHealth(s.logger))
	mux.HandleFunc("GET "+server.PathSwagger, server.HandleSwagger(doc, s.logger))
	if history {
		mux.HandleFunc("GET "+server.PathSearches, server.HandleListSearches(s.opts.History, s.logger))
		mux.HandleFunc("GET "+server.PathSearch, server.HandleGetSearch(s.opts.History, s.logger))
		mux.HandleFunc("DELETE "+server.PathSearch, server.HandleDeleteSearch(s.opts.History, s.logger))
	}

	return server.CORSMiddleware(server.RequestIDMiddleware(mux)), nil
}

// ServeHTTP listens on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	handler, err := s.HTTPHandler()
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("Serving MCP over streamable HTTP on %s%s", addr, server.PathMCP)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
