package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"time"

	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	kubeconfig "sigs.k8s.io/controller-runtime/pkg/client/config"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	"sigs.k8s.io/controller-runtime/pkg/manager"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	"github.com/clustergate/cloudcheck/internal/agent"
	"github.com/clustergate/cloudcheck/internal/checks"
	"github.com/clustergate/cloudcheck/internal/checks/builtin"
	"github.com/clustergate/cloudcheck/internal/config"
	"github.com/clustergate/cloudcheck/internal/logging"
	"github.com/clustergate/cloudcheck/internal/server"
	"github.com/clustergate/cloudcheck/internal/session"
)

var setupLog = ctrl.Log.WithName("setup")

func main() {
	os.Exit(run(os.Args[1:]))
}

// run starts the agent and returns the process exit code. Deferred
// cleanup, such as closing the log file, runs before the process exits.
func run(args []string) int {
	var (
		configPath   string
		metricsAddr  string
		probeAddr    string
		readyzAddr   string
		leaderElect  bool
		namespace    string
		textfilePath string
		logFile      = logging.DefaultFile
	)

	fs := flag.NewFlagSet("agent", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", "/etc/cloudcheck/cloudcheck.yaml", "Path to the check configuration.")
	fs.StringVar(&metricsAddr, "metrics-bind-address", ":8080", "The address the metrics endpoint binds to.")
	fs.StringVar(&probeAddr, "health-probe-bind-address", ":8081", "The address the probe endpoint binds to.")
	fs.StringVar(&readyzAddr, "readyz-bind-address", ":8082", "The address the check readyz endpoint binds to.")
	fs.BoolVar(&leaderElect, "leader-elect", false,
		"Enable leader election. Ensures only one agent replica runs checks at a time.")
	fs.StringVar(&namespace, "namespace", "", "Override the namespace from the configuration file.")
	fs.StringVar(&textfilePath, "metrics-textfile", "", "Also write metrics to this file after every round.")
	fs.StringVar(&logFile.Path, "log-file", "", "Also write logs to this rotating file.")

	opts := zap.Options{Development: true}
	opts.BindFlags(fs)
	kubeconfig.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	logWriter, logCloser, err := logging.Writer(logFile)
	if err != nil {
		setupLog.Error(err, "unable to open log file")
		return 1
	}
	defer logCloser.Close()
	ctrl.SetLogger(logging.New(&opts, logWriter))

	cfg, err := config.Load(configPath)
	if err != nil {
		setupLog.Error(err, "unable to load configuration", "path", configPath)
		return 1
	}
	if namespace != "" {
		cfg.Namespace = namespace
	}

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), ctrl.Options{
		Scheme: session.Scheme(),
		Metrics: metricsserver.Options{
			BindAddress: metricsAddr,
		},
		HealthProbeBindAddress: probeAddr,
		LeaderElection:         leaderElect,
		LeaderElectionID:       "agent.cloudcheck.io",
	})
	if err != nil {
		setupLog.Error(err, "unable to create manager")
		return 1
	}

	// Probes use an uncached client: they must see their own writes.
	c, err := client.New(mgr.GetConfig(), client.Options{Scheme: mgr.GetScheme(), Mapper: mgr.GetRESTMapper()})
	if err != nil {
		setupLog.Error(err, "unable to create client")
		return 1
	}
	entries, err := builtin.Build(cfg, c)
	if err != nil {
		setupLog.Error(err, "unable to build checks")
		return 1
	}
	builtin.RegisterAll(entries)
	setupLog.Info("registered checks", "available", checks.List())

	// Shared state between the runner and the readyz server.
	probeState := server.NewProbeState()

	if err := mgr.Add(&agent.Runner{
		Entries:  entries,
		State:    probeState,
		Textfile: textfilePath,
	}); err != nil {
		setupLog.Error(err, "unable to add check runner")
		return 1
	}

	// Standard liveness/readiness probes for the agent pod itself.
	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up health check")
		return 1
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up ready check")
		return 1
	}

	// Serve the check readyz endpoint for external consumers.
	if err := mgr.Add(readyzServer(readyzAddr, probeState)); err != nil {
		setupLog.Error(err, "unable to add readyz server")
		return 1
	}

	setupLog.Info("starting manager")
	if err := mgr.Start(ctrl.SetupSignalHandler()); err != nil {
		setupLog.Error(err, "problem running manager")
		return 1
	}
	return 0
}

// readyzServer serves /readyz. Like the runner it only starts on the
// leader, the one replica with results to report.
func readyzServer(addr string, state *server.ProbeState) manager.Runnable {
	return manager.RunnableFunc(func(ctx context.Context) error {
		mux := http.NewServeMux()
		mux.HandleFunc("/readyz", server.ReadyzHandler(state))
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		setupLog.Info("starting check readyz server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
}
