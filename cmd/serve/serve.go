package serve

import (
	"context"
	"time"

	"github.com/endorses/lexfst/internal/pkg/cmdutil"
	"github.com/endorses/lexfst/internal/pkg/constants"
	"github.com/endorses/lexfst/internal/pkg/logger"
	"github.com/endorses/lexfst/internal/pkg/lookupd"
	"github.com/endorses/lexfst/internal/pkg/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

// ServeCmd serves lookups from an fst file over HTTP.
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve dictionary lookups over HTTP",
	Long: `Serve lookups from a compiled dictionary over HTTP.

Endpoints:
  GET /v1/lookup?key=K     exact lookup
  GET /v1/match?key=K      lookup accepting keys that pass a shorter key
  GET /v1/prefixes?q=Q     every dictionary key that prefixes Q
  GET /v1/stats            dictionary statistics
  GET /healthz             readiness
  GET /metrics             Prometheus metrics

SIGHUP reloads the dictionary. With --watch the file is also reloaded when it
changes on disk. A dictionary that fails to load is logged and the previous
one keeps serving.

Examples:
  lexfst serve -d words.fst
  lexfst serve -d words.fst --listen 127.0.0.1:9000 --watch`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	dictionary   string
	listenAddr   string
	watch        bool
	pollInterval time.Duration
	forcePolling bool
	noMetrics    bool
)

func init() {
	ServeCmd.Flags().StringVarP(&dictionary, "dictionary", "d", "", "fst file to serve")
	ServeCmd.Flags().StringVar(&listenAddr, "listen", constants.DefaultListenAddr, "HTTP listen address")
	ServeCmd.Flags().BoolVar(&watch, "watch", false, "reload the dictionary when the file changes")
	ServeCmd.Flags().DurationVar(&pollInterval, "poll-interval", constants.ReloadPollInterval, "polling interval when file events are unavailable")
	ServeCmd.Flags().BoolVar(&forcePolling, "poll", false, "poll the file instead of using file events")
	ServeCmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "do not expose /metrics")

	_ = viper.BindPFlag("serve.listen", ServeCmd.Flags().Lookup("listen"))
	_ = viper.BindPFlag("serve.watch", ServeCmd.Flags().Lookup("watch"))
	_ = viper.BindPFlag("serve.poll_interval", ServeCmd.Flags().Lookup("poll-interval"))
}

func runServe(cmd *cobra.Command, args []string) error {
	path, err := cmdutil.DictionaryPath(dictionary)
	if err != nil {
		return err
	}

	var metrics *lookupd.Metrics
	if !noMetrics {
		metrics = lookupd.NewMetrics()
	}

	store := lookupd.NewStore(path, metrics)
	if _, err := store.Reload(); err != nil {
		return err
	}

	server := lookupd.NewServer(store, metrics, lookupd.Config{
		Addr:            viper.GetString("serve.listen"),
		ShutdownTimeout: constants.GracefulShutdownTimeout,
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var watcher *lookupd.Watcher
	onHangup := func() { _, _ = store.Reload() }
	if viper.GetBool("serve.watch") {
		watcher = lookupd.NewWatcher(store, lookupd.WatcherConfig{
			PollInterval: viper.GetDuration("serve.poll_interval"),
			ForcePolling: forcePolling,
		})
		onHangup = watcher.Trigger
	}

	cleanup := signals.SetupHandler(ctx, cancel, onHangup)
	defer cleanup()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	if watcher != nil {
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}

	err = g.Wait()
	logger.Info("Lookup service stopped", "reloads", store.Reloads())
	return err
}
