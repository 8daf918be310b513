package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/clustergate/cloudcheck/internal/checks"
	"github.com/clustergate/cloudcheck/internal/checks/builtin"
	"github.com/clustergate/cloudcheck/internal/cli"
	"github.com/clustergate/cloudcheck/internal/config"
	"github.com/clustergate/cloudcheck/internal/session"
)

func init() {
	rootCmd.AddCommand(newRunCommand())
}

func newRunCommand() *cobra.Command {
	var (
		configPath string
		checkNames []string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every check in a configuration file once",
		Long: `Run loads a YAML check configuration, runs the selected checks one at a
time and exits with the worst severity.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			filter := make(map[string]bool, len(checkNames))
			for _, name := range checkNames {
				filter[strings.TrimSpace(name)] = true
			}

			var sess *session.Session
			if needsCluster(cfg, filter) {
				sess, err = session.Load(ctx, sessionOptions())
				if err != nil {
					return emit(ctx, cmd, cli.AuthFailure("run", err))
				}
				if opts.namespace != "" {
					cfg.Namespace = opts.namespace
				}
			}

			entries, err := builtin.Build(cfg, clientOf(sess))
			if err != nil {
				return err
			}
			checks.Reset()
			builtin.RegisterAll(entries)
			if unknown := missing(filter); len(unknown) > 0 {
				return fmt.Errorf("unknown checks: %s", strings.Join(unknown, ", "))
			}
			return emit(ctx, cmd, cli.RunChecks(ctx, checks.All(), filter))
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "f", "cloudcheck.yaml", "Path to the check configuration")
	cmd.Flags().StringSliceVar(&checkNames, "checks", nil, "Comma-separated list of checks to run (default: all)")
	return cmd
}

// needsCluster reports whether any selected check talks to the API server.
func needsCluster(cfg *config.Config, filter map[string]bool) bool {
	for _, c := range cfg.Checks {
		if len(filter) > 0 && !filter[c.Name] {
			continue
		}
		if c.Type != config.TypeHTTP {
			return true
		}
	}
	return false
}

// missing returns the filtered names that are not registered.
func missing(filter map[string]bool) []string {
	var unknown []string
	for name := range filter {
		if _, ok := checks.Get(name); !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	return unknown
}

// clientOf returns the session client, or nil when no session was needed.
func clientOf(sess *session.Session) client.Client {
	if sess == nil {
		return nil
	}
	return sess.Client
}
