// Command server runs the workflow builder control plane: the HTTP API
// (internal/httpapi) and the Temporal worker that executes the DAG
// executor workflow/activity (internal/executor) behind it.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.temporal.io/sdk/client"
	"goa.design/clue/log"

	"github.com/shankarbhavani/workflow-builder/internal/activityclient"
	"github.com/shankarbhavani/workflow-builder/internal/agent"
	"github.com/shankarbhavani/workflow-builder/internal/catalog"
	"github.com/shankarbhavani/workflow-builder/internal/config"
	"github.com/shankarbhavani/workflow-builder/internal/engine"
	"github.com/shankarbhavani/workflow-builder/internal/engine/temporal"
	"github.com/shankarbhavani/workflow-builder/internal/executor"
	"github.com/shankarbhavani/workflow-builder/internal/httpapi"
	"github.com/shankarbhavani/workflow-builder/internal/reconcile"
	"github.com/shankarbhavani/workflow-builder/internal/store/postgres"
	"github.com/shankarbhavani/workflow-builder/internal/telemetry"
)

func main() {
	var (
		hostF = flag.String("host", "0.0.0.0", "HTTP listen host")
		portF = flag.String("port", "8080", "HTTP listen port")
		dbgF  = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))
	if *dbgF {
		ctx = log.Context(ctx, log.WithDebug())
	}

	if err := run(ctx, *hostF, *portF); err != nil {
		log.Fatal(ctx, err)
	}
}

func run(ctx context.Context, host, port string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := telemetry.NewClueLogger()
	metrics := telemetry.NewClueMetrics()
	tracer := telemetry.NewClueTracer()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	st, err := postgres.New(pool)
	if err != nil {
		return fmt.Errorf("build postgres store: %w", err)
	}

	rdb := newOptionalRedisClient(ctx)
	if rdb != nil {
		defer rdb.Close()
	}

	lookup := catalog.NewLookup(st)
	cached := catalog.NewCachedLookup(lookup, rdb, envDurationOr("CATALOG_CACHE_TTL", 5*time.Minute))
	validator := catalog.NewSchemaValidator()

	llm, err := agent.NewClientFromAPIKey(cfg.LLMAPIKey, envOr("LLM_MODEL", "claude-3-5-sonnet-latest"))
	if err != nil {
		return fmt.Errorf("build llm client: %w", err)
	}

	eng, err := temporal.New(temporal.Options{
		ClientOptions: &client.Options{HostPort: cfg.RuntimeHost, Namespace: cfg.RuntimeNamespace},
		TaskQueue:     cfg.RuntimeTaskQueue,
		Logger:        logger,
		Metrics:       metrics,
		Tracer:        tracer,
	})
	if err != nil {
		return fmt.Errorf("build temporal engine: %w", err)
	}
	defer eng.Close()

	if err := eng.RegisterWorkflow(ctx, engine.WorkflowDefinition{
		Name:      executor.WorkflowName,
		TaskQueue: cfg.RuntimeTaskQueue,
		Handler:   executor.Workflow,
	}); err != nil {
		return fmt.Errorf("register workflow: %w", err)
	}

	actionActivity := &executor.ActionActivity{
		Resolver:     cached,
		Invoker:      activityclient.New(),
		Logs:         st,
		AuthUser:     cfg.ActionServiceAuthUser,
		AuthPassword: cfg.ActionServiceAuthPassword,
	}
	if err := eng.RegisterActivity(ctx, engine.ActivityDefinition{
		Name:    executor.ActionActivityName,
		Handler: actionActivity.Handle,
		Options: engine.ActivityOptions{
			Queue:        cfg.RuntimeTaskQueue,
			RetryPolicy:  engine.DefaultActivityRetryPolicy(),
			StartToClose: engine.DefaultActivityStartToClose,
		},
	}); err != nil {
		return fmt.Errorf("register activity: %w", err)
	}

	if err := eng.Worker().Start(); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	defer eng.Worker().Stop()

	srv := &httpapi.Server{
		Store:     st,
		Actions:   cached,
		Validator: validator,
		Engine:    eng,
		Handles:   eng,
		Reconcile: reconcile.New(eng, time.Now),
		LLM:       llm,
		Auth:      httpapi.NewJWTAuthenticator(cfg.SecretKey, time.Duration(cfg.AccessTokenExpireHours)*time.Hour),
		Logger:    logger,
		TaskQueue: cfg.RuntimeTaskQueue,
	}
	router := httpapi.NewRouter(srv, cfg.CORSOrigins)

	errc := make(chan error, 1)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpSrv := &http.Server{
		Addr:              net.JoinHostPort(host, port),
		Handler:           router,
		ReadHeaderTimeout: 60 * time.Second,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		go func() {
			log.Printf(ctx, "http server listening on %q", httpSrv.Addr)
			errc <- httpSrv.ListenAndServe()
		}()

		<-ctx.Done()
		log.Printf(ctx, "shutting down http server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf(ctx, "failed to shutdown cleanly: %v", err)
		}
	}()

	log.Printf(ctx, "exiting (%v)", <-errc)
	cancel()
	wg.Wait()
	log.Printf(ctx, "exited")
	return nil
}

// newOptionalRedisClient connects to Redis for the catalog read-through
// cache when REDIS_ADDR is configured. Redis is not among spec.md §6's
// fixed config variables (the cache is an ambient optimization, not a
// named interface), so its absence is not an error: CachedLookup degrades
// to an uncached pass-through when given a nil client.
func newOptionalRedisClient(ctx context.Context) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf(ctx, "redis unavailable at %q, catalog cache disabled: %v", addr, err)
		return nil
	}
	return rdb
}

func envOr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envDurationOr(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

