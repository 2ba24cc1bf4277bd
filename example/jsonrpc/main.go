package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mnehpets/rpcbind/auth"
	"github.com/mnehpets/rpcbind/config"
	"github.com/mnehpets/rpcbind/dispatch"
	"github.com/mnehpets/rpcbind/endpoint"
	"github.com/mnehpets/rpcbind/jsonrpc"
	"github.com/mnehpets/rpcbind/middleware"
)

type MathService struct {
	logger *slog.Logger
}

func (m *MathService) Add(ctx context.Context, a, b int) (int, error) {
	return a + b, nil
}

type SubParams struct {
	_ struct{} `rpc:"name=math.subtract"`
	A int      `json:"a"`
	B int      `json:"b"`
}

func (m *MathService) Sub(ctx context.Context, p SubParams) (int, error) {
	return p.A - p.B, nil
}

func (m *MathService) Divide(ctx context.Context, a, b float64) (float64, error) {
	if b == 0 {
		return 0, dispatch.NewError(dispatch.CodeInvalidParams, "division by zero")
	}
	return a / b, nil
}

func (m *MathService) Log(ctx context.Context, msg string) error {
	m.logger.InfoContext(ctx, "client log", "msg", msg)
	return nil
}

func (m *MathService) RPCAnnotations() map[string]string {
	return map[string]string{
		"Add":    "name=math.add",
		"Divide": `name = "math.divide"`,
		"Log":    "name=log, notification",
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	b := dispatch.NewBuilder(dispatch.WithLogger(logger))
	if err := b.Register(&MathService{logger: logger}); err != nil {
		log.Fatal(err)
	}
	err = b.Declare(
		dispatch.Func0("ping", func(ctx context.Context) (string, error) { return "pong", nil }),
		dispatch.Func0("whoami", func(ctx context.Context) (string, error) {
			if claims, ok := auth.ClaimsFromContext(ctx); ok {
				return claims.Subject, nil
			}
			return "anonymous", nil
		}),
		dispatch.Func2("math.pow", func(ctx context.Context, base float64, exp int) (float64, error) {
			r := 1.0
			for i := 0; i < exp; i++ {
				r *= base
			}
			return r, nil
		}).WithParamNames("base", "exp"),
	)
	if err != nil {
		log.Fatal(err)
	}
	table := b.Build()

	opts := []jsonrpc.Option{jsonrpc.WithLogger(logger)}
	if cfg.Discovery {
		opts = append(opts, jsonrpc.WithDiscovery())
	}
	e := jsonrpc.NewEndpoint(table, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	processors := []endpoint.Processor{
		middleware.NewHeadersProcessor(middleware.WithAllowedOrigins(cfg.AllowedOrigins()...)),
	}
	if cfg.AuthEnabled() {
		bearerOpts := []auth.BearerOption{auth.WithLogger(logger)}
		if cfg.OIDCSkipIssuerCheck {
			bearerOpts = append(bearerOpts, auth.WithSkipIssuerCheck())
		}
		bearer, err := auth.NewBearer(ctx, cfg.OIDCIssuer, cfg.OIDCAudience, bearerOpts...)
		if err != nil {
			log.Fatalf("Failed to set up bearer auth: %v", err)
		}
		processors = append(processors, bearer)
	}

	mux := http.NewServeMux()
	mux.Handle("/rpc", endpoint.Handler(e.Endpoint, processors...).WithLogger(logger))
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	logger.Info("starting server", "addr", cfg.Addr, "methods", table.Names())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
