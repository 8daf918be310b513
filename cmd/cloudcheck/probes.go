package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/clustergate/cloudcheck/internal/checks"
	"github.com/clustergate/cloudcheck/internal/checks/builtin"
	"github.com/clustergate/cloudcheck/internal/checks/inventory"
	"github.com/clustergate/cloudcheck/internal/cli"
	"github.com/clustergate/cloudcheck/internal/config"
	"github.com/clustergate/cloudcheck/internal/lifecycle"
	"github.com/clustergate/cloudcheck/internal/resource/kube"
	"github.com/clustergate/cloudcheck/internal/session"
)

func init() {
	for _, kind := range []string{kube.KindVolume, kube.KindServer, kube.KindObject} {
		rootCmd.AddCommand(newKindCommand(kind))
	}
}

func newKindCommand(kind string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     kind,
		Short:   fmt.Sprintf("Probe %s resources (%s)", kind, kindDescription(kind)),
		GroupID: probeGroupID,
	}
	cmd.AddCommand(newAPICommand(kind), newExistsCommand(kind), newCreateDeleteCommand(kind))
	return cmd
}

func kindDescription(kind string) string {
	switch kind {
	case kube.KindVolume:
		return "PersistentVolumeClaims"
	case kube.KindServer:
		return "Pods"
	default:
		return "ConfigMaps"
	}
}

func newAPICommand(kind string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "api",
		Short: fmt.Sprintf("List %ss to verify the API answers", kind),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name := kind + "-api"
			return runWithClient(cmd, name, kind, func(kc *kube.Client) checks.Checker {
				return &inventory.ListCheck{CheckName: name, Kind: kind, Lister: kc, Limit: limit, Thresholds: thresholds()}
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 1, "Maximum number of resources to list")
	return cmd
}

func newExistsCommand(kind string) *cobra.Command {
	return &cobra.Command{
		Use:   "exists <id-or-name>",
		Short: fmt.Sprintf("Verify a %s exists by ID or display name", kind),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := kind + "-exists"
			return runWithClient(cmd, name, kind, func(kc *kube.Client) checks.Checker {
				return &inventory.ExistsCheck{CheckName: name, Client: kc, Target: args[0], Thresholds: thresholds()}
			})
		},
	}
}

func newCreateDeleteCommand(kind string) *cobra.Command {
	check := config.Check{
		Name:          kind + "-create-delete",
		Type:          config.TypeCreateDelete,
		Kind:          kind,
		ReadyTimeout:  config.Duration(lifecycle.DefaultReadyTimeout),
		DeleteTimeout: config.Duration(lifecycle.DefaultDeleteTimeout),
	}
	cmd := &cobra.Command{
		Use:   "create-delete",
		Short: fmt.Sprintf("Create a %s, wait for it, delete it and wait for it to go", kind),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			th := config.Thresholds{Warning: opts.warning, Critical: opts.critical}
			check.Thresholds = &th
			return runWithClient(cmd, check.Name, kind, func(kc *kube.Client) checks.Checker {
				return lifecycle.New(kc, builtin.LifecycleConfig(check), lifecycle.WithName(check.Name))
			})
		},
	}
	addLifecycleFlags(cmd.Flags(), kind, &check)
	return cmd
}

func addLifecycleFlags(fs *pflag.FlagSet, kind string, check *config.Check) {
	fs.StringVar(&check.Resource.Name, "name", lifecycle.DefaultName, "Display name of the test resource")
	fs.StringToStringVar(&check.Resource.Labels, "label", nil, "Extra labels for the test resource (key=value)")
	fs.Var(&check.ReadyTimeout, "ready-timeout", "How long to wait for the resource to become ready")
	fs.Var(&check.DeleteTimeout, "delete-timeout", "How long to wait for the resource to disappear")
	fs.Var(&check.PollInterval, "poll-interval", "Delay between status queries")
	fs.BoolVar(&check.DeleteStale, "delete-stale", false, "Delete a leftover resource with the same name before starting")

	switch kind {
	case kube.KindVolume:
		fs.StringVar(&check.Resource.Size, "size", "", "Requested capacity; a bare number means Gi (default "+kube.DefaultVolumeSize+")")
		fs.StringVar(&check.Resource.Type, "type", "", "Storage class")
		fs.StringVar(&check.Resource.Zone, "zone", "", "Topology zone")
		fs.StringVar(&check.ReadyStatus, "ready-status", "", "Status to wait for: available, or pending for WaitForFirstConsumer storage classes")
	case kube.KindServer:
		fs.StringVar(&check.Resource.Image, "image", "", "Container image (default "+kube.DefaultServerImage+")")
		fs.StringVar(&check.Resource.Type, "type", "", "Runtime class")
		fs.StringVar(&check.Resource.Zone, "zone", "", "Topology zone")
		fs.StringVar(&check.ReadyStatus, "ready-status", "", "Status to wait for: available, pending or stopped")
	case kube.KindObject:
		fs.StringVar(&check.Resource.Size, "size", "", "Payload size, e.g. 4KiB (default "+kube.DefaultObjectSize+")")
	}
}

// runWithClient authenticates, builds one check for kind and reports it.
// Authentication failures are reported as CRITICAL before any check runs.
func runWithClient(cmd *cobra.Command, name, kind string, build func(*kube.Client) checks.Checker) error {
	ctx := cmd.Context()
	sess, err := session.Load(ctx, sessionOptions())
	if err != nil {
		return emit(ctx, cmd, cli.AuthFailure(name, err))
	}
	kc, err := kube.ForKind(kind, sess.Client, sess.Namespace)
	if err != nil {
		return err
	}
	return emit(ctx, cmd, cli.RunChecks(ctx, []checks.Checker{build(kc)}, nil))
}
