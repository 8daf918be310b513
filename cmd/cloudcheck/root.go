package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/clustergate/cloudcheck/internal/checks"
	"github.com/clustergate/cloudcheck/internal/cli"
	"github.com/clustergate/cloudcheck/internal/config"
	"github.com/clustergate/cloudcheck/internal/logging"
	"github.com/clustergate/cloudcheck/internal/metrics"
	"github.com/clustergate/cloudcheck/internal/session"
)

// Version is set at build time via -ldflags "-X main.Version=...".
var Version = "dev"

const probeGroupID = "probes"

// globalOptions holds the persistent flags shared by every check command.
type globalOptions struct {
	kubeconfig      string
	kubeContext     string
	namespace       string
	warning         config.Duration
	critical        config.Duration
	output          string
	metricsTextfile string
}

var (
	opts = globalOptions{
		warning:  config.Duration(checks.DefaultWarningThreshold),
		critical: config.Duration(checks.DefaultCriticalThreshold),
	}
	zapOpts = zap.Options{Level: zapcore.WarnLevel}

	// exitCode is set by the last report written.
	exitCode int
)

var rootCmd = &cobra.Command{
	Use:   "cloudcheck",
	Short: "Lifecycle health probes for Kubernetes-hosted resources",
	Long: `cloudcheck creates, verifies and deletes throwaway resources to prove the
cluster can serve them, and reports the result with a monitoring-plugin
exit code (0 ok, 1 warning, 2 critical, 3 unknown).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		ctrl.SetLogger(logging.New(&zapOpts, cmd.ErrOrStderr()))
		switch opts.output {
		case "text", "json":
		default:
			return fmt.Errorf("unsupported output format %q (want text or json)", opts.output)
		}
		if opts.warning > 0 && opts.critical > 0 && opts.warning > opts.critical {
			return fmt.Errorf("warning threshold %s exceeds critical threshold %s", opts.warning, opts.critical)
		}
		return nil
	},
}

func init() {
	rootCmd.AddGroup(&cobra.Group{ID: probeGroupID, Title: "Resource Probes:"})
	addGlobalFlags(rootCmd.PersistentFlags())
}

func addGlobalFlags(fs *pflag.FlagSet) {
	zapFlags := flag.NewFlagSet("zap", flag.ContinueOnError)
	zapOpts.BindFlags(zapFlags)
	fs.AddGoFlagSet(zapFlags)

	fs.StringVar(&opts.kubeconfig, "kubeconfig", "", "Path to kubeconfig file (in-cluster config, then default rules, if empty)")
	fs.StringVar(&opts.kubeContext, "context", "", "Kubeconfig context to use")
	fs.StringVarP(&opts.namespace, "namespace", "n", "", "Namespace for test resources (context namespace if empty)")
	fs.VarP(&opts.warning, "warning", "w", "Elapsed time at or above which a success becomes WARNING (seconds or duration)")
	fs.VarP(&opts.critical, "critical", "c", "Elapsed time at or above which a success becomes CRITICAL (seconds or duration)")
	fs.StringVarP(&opts.output, "output", "o", "text", "Output format: text or json")
	fs.StringVar(&opts.metricsTextfile, "metrics-textfile", "", "Write check metrics to this file in textfile collector format")
}

func execute() int {
	ctx := log.IntoContext(ctrl.SetupSignalHandler(), ctrl.Log.WithName("cloudcheck"))
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", checks.SeverityUnknown.Label(), err)
		return checks.SeverityUnknown.ExitCode()
	}
	return exitCode
}

func thresholds() checks.Thresholds {
	return checks.Thresholds{Warning: opts.warning.D(), Critical: opts.critical.D()}
}

func sessionOptions() session.Options {
	return session.Options{
		Kubeconfig: opts.kubeconfig,
		Context:    opts.kubeContext,
		Namespace:  opts.namespace,
		UserAgent:  "cloudcheck/" + Version,
	}
}

// emit writes the report, dumps metrics if requested and records the exit code.
func emit(ctx context.Context, cmd *cobra.Command, report *cli.Report) error {
	out := cmd.OutOrStdout()
	if opts.output == "json" {
		if err := cli.FormatJSON(out, report); err != nil {
			return fmt.Errorf("writing JSON: %w", err)
		}
	} else {
		cli.FormatText(out, report)
	}

	if opts.metricsTextfile != "" {
		if err := metrics.WriteTextfile(opts.metricsTextfile); err != nil {
			log.FromContext(ctx).Error(err, "failed to write metrics textfile", "path", opts.metricsTextfile)
		}
	}

	exitCode = report.ExitCode()
	return nil
}
