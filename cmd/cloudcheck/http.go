package main

import (
	"github.com/spf13/cobra"

	"github.com/clustergate/cloudcheck/internal/checks"
	"github.com/clustergate/cloudcheck/internal/checks/httpcheck"
	"github.com/clustergate/cloudcheck/internal/cli"
	"github.com/clustergate/cloudcheck/internal/config"
)

func init() {
	rootCmd.AddCommand(newHTTPCommand())
}

func newHTTPCommand() *cobra.Command {
	var (
		cfg     httpcheck.Config
		timeout = config.Duration(httpcheck.DefaultTimeout)
	)
	cmd := &cobra.Command{
		Use:     "http <url>",
		Short:   "Request a URL and classify the response status",
		GroupID: probeGroupID,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.URL = args[0]
			cfg.Timeout = timeout.D()
			cfg.Thresholds = thresholds()

			check, err := httpcheck.New("http", cfg)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return emit(ctx, cmd, cli.RunChecks(ctx, []checks.Checker{check}, nil))
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&cfg.Method, "method", "X", "GET", "HTTP method: GET, POST, PUT, DELETE or HEAD")
	fs.IntSliceVar(&cfg.StatusOkay, "status-okay", []int{200}, "Status codes reported as OKAY")
	fs.IntSliceVar(&cfg.StatusWarning, "status-warning", nil, "Status codes reported as WARNING")
	fs.IntSliceVar(&cfg.StatusCritical, "status-critical", nil, "Status codes reported as CRITICAL")
	fs.Var(&timeout, "timeout", "Request timeout")
	fs.BoolVarP(&cfg.Insecure, "insecure", "k", false, "Skip TLS certificate verification")
	fs.StringVar(&cfg.CAFile, "ca-file", "", "PEM bundle of trusted CA certificates")
	fs.StringToStringVarP(&cfg.Headers, "header", "H", nil, "Request headers (name=value)")
	return cmd
}
