package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sanity-io/litter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kevinxiao27/multiselect/internal/envconfig"
	"github.com/kevinxiao27/multiselect/internal/logging"
	"github.com/kevinxiao27/multiselect/keys"
	"github.com/kevinxiao27/multiselect/label"
	"github.com/kevinxiao27/multiselect/multiselect"
	"github.com/kevinxiao27/multiselect/source"
	"github.com/kevinxiao27/multiselect/source/countcache"
	"github.com/kevinxiao27/multiselect/source/pgsource"
)

func main() {
	if err := NewCLI().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "multiselect",
		Short:         "Serve multi-selection lists to remote views over websockets",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the websocket server",
		Args:  cobra.NoArgs,
		RunE:  runServer,
	}
	serveCmd.Flags().String("host", envconfig.Host(), "listen address")
	serveCmd.Flags().String("table", "items", "table to read when DATABASE_URL is set")
	serveCmd.Flags().Int("demo-items", 500, "number of in-memory demo records")
	serveCmd.Flags().String("label", "Items", "label shown above the list")

	envCmd := &cobra.Command{
		Use:   "env",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println(litter.Sdump(envconfig.AsMap()))
		},
	}

	rootCmd.AddCommand(serveCmd, envCmd)
	return rootCmd
}

func runServer(cmd *cobra.Command, _ []string) error {
	log := logging.NewDefaultLogger(envconfig.LogLevel())
	host, _ := cmd.Flags().GetString("host")
	table, _ := cmd.Flags().GetString("table")
	demo, _ := cmd.Flags().GetInt("demo-items")
	title, _ := cmd.Flags().GetString("label")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, closeSource, err := openSource(ctx, log, table, demo)
	if err != nil {
		return err
	}
	defer closeSource()

	strategy, err := keys.ParseStrategy(envconfig.KeyStrategy())
	if err != nil {
		return err
	}
	srv := NewServer(log, src, multiselect.Properties{Label: title, Placeholder: "Search"},
		multiselect.WithPageSize[Record](envconfig.PageSize()),
		multiselect.WithLocale[Record](envconfig.Locale()),
		multiselect.WithKeyStrategy[Record](strategy),
		multiselect.WithIdentity(recordID),
		multiselect.WithItemLabelGenerator(label.Of(recordName)),
	)

	httpSrv := &http.Server{
		Addr:              host,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", "addr", host, "ws", "ws://"+host+"/ws", "config", envconfig.AsMap())
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		srv.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openSource reads from PostgreSQL when DATABASE_URL is set, caching counts in
// Redis when REDIS_ADDR is set too. Otherwise it serves demo records.
func openSource(ctx context.Context, log logging.Logger, table string, demo int) (source.Source[Record], func(), error) {
	url := envconfig.DatabaseURL()
	if url == "" {
		log.Info("serving demo records", "count", demo)
		return source.NewBounded(demoRecords(demo)...), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	tbl, err := pgsource.New[Record](pool, table, "name",
		pgsource.WithColumns[Record]("id", "name"),
		pgsource.WithOrder[Record]("id"),
	)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	log.Info("serving table", "table", table)

	addr := envconfig.RedisAddr()
	if addr == "" {
		return tbl, pool.Close, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		pool.Close()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	cache, err := countcache.New[Record](tbl, rdb, "multiselect:"+table, envconfig.CountTTL(), log)
	if err != nil {
		rdb.Close()
		pool.Close()
		return nil, nil, err
	}
	log.Info("caching counts", "redis", addr, "ttl", envconfig.CountTTL())
	return cache, func() {
		rdb.Close()
		pool.Close()
	}, nil
}

var demoNames = []string{
	"apple", "apricot", "banana", "blackberry", "blueberry", "cherry", "clementine",
	"fig", "grape", "guava", "kiwi", "lemon", "lime", "mango", "melon", "nectarine",
	"orange", "papaya", "peach", "pear", "plum", "pomegranate", "raspberry", "strawberry",
}

func demoRecords(n int) []Record {
	out := make([]Record, n)
	for i := range out {
		name := demoNames[i%len(demoNames)]
		if round := i / len(demoNames); round > 0 {
			name = fmt.Sprintf("%s %d", name, round+1)
		}
		out[i] = Record{ID: int64(i + 1), Name: name}
	}
	return out
}
