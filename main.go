package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"dario.cat/mergo"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/hashicorp/errwrap"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/cloudinv/argexport/internal/config"
	"github.com/cloudinv/argexport/internal/export"
	"github.com/cloudinv/argexport/pkg/graph"
	"github.com/cloudinv/argexport/pkg/log"
	"github.com/cloudinv/argexport/pkg/secrets"
	"github.com/cloudinv/argexport/pkg/secrets/awsparamstore"
)

var (
	cfgFile string
	runtime config.Runtime
)

var rootCmd = &cobra.Command{
	Use:   "argexport <resource-type> [<resource-type>...]",
	Short: "Export Azure Resource Graph inventory to per-type JSON files",
	Long: `argexport queries the Azure Resource Graph for each requested resource type
(e.g. Microsoft.Compute/virtualMachines), pages through the results, and
writes one JSON file per type into the output directory. Types are processed
independently: a failure for one type is logged and never stops the others.`,
	Version:       Version,
	Args:          cobra.ArbitraryArgs,
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&cfgFile, "config", "c", "", "YAML config file")
	flags.StringVarP(&runtime.OutputDirectory, "output", "o", "", "output directory (default ./arg-output/<timestamp>)")
	flags.StringVarP(&runtime.SubscriptionID, "subscription", "s", "", "restrict queries to one subscription id")
	flags.IntVar(&runtime.PageSize, "page-size", 0, fmt.Sprintf("records per query page (default %d)", config.DefaultPageSize))
	flags.IntVar(&runtime.MaxIterations, "max-iterations", 0, fmt.Sprintf("safety bound on paging iterations per type (default %d)", config.DefaultMaxIterations))
	flags.IntVar(&runtime.MaxDepth, "max-depth", 0, fmt.Sprintf("JSON nesting depth kept in output files (default %d)", config.DefaultMaxDepth))
	flags.StringVar(&runtime.APIVersion, "api-version", "", "resource graph API version")
	flags.DurationVar(&runtime.HTTPTimeout, "timeout", 0, "HTTP client timeout")
	flags.BoolVarP(&runtime.Verbose, "verbose", "v", false, "debug output")
}

func run(_ *cobra.Command, args []string) error {
	runtime.ResourceTypes = append(runtime.ResourceTypes, args...)

	if cfgFile != "" {
		var file config.Runtime
		if err := file.LoadFile(cfgFile); err != nil {
			return err
		}
		if err := mergo.Merge(&runtime, file); err != nil {
			return err
		}
	}

	runtime.ApplyDefaults(time.Now())
	if runtime.UserAgent == "" {
		runtime.UserAgent = "argexport/" + Version
	}
	if err := runtime.Validate(); err != nil {
		return err
	}

	level := log.LevelInfo
	if runtime.Verbose {
		level = log.LevelDebug
	}
	logger := log.NewLogger(level, os.Stderr, "[argexport] ")

	ctx := context.Background()

	resolver := secrets.Mux{"env": secrets.Env{}}
	if sess, err := session.NewSession(); err == nil {
		resolver["ssm"] = awsparamstore.New(sess)
	}
	if err := runtime.ResolveSecrets(ctx, resolver); err != nil {
		return err
	}

	creds := runtime.Session()
	if !creds.Active(ctx) {
		logger.Infof("no active session, starting login")
		if err := creds.Login(ctx); err != nil {
			return errors.Wrap(err, "authentication unavailable")
		}
	}

	opts := []graph.Option{
		graph.WithLogger(logger),
		graph.WithUserAgent(runtime.UserAgent),
	}
	if runtime.APIVersion != "" {
		opts = append(opts, graph.WithAPIVersion(runtime.APIVersion))
	}
	if runtime.HTTPTimeout > 0 {
		opts = append(opts, graph.WithHTTPTimeout(runtime.HTTPTimeout))
	}

	exporter := &export.Exporter{
		Logger:  logger,
		Runtime: &runtime,
		Client:  graph.New(creds, opts...),
	}

	statuses, err := exporter.Run(ctx)

	var written, empty, failed int
	for _, st := range statuses {
		switch {
		case st.Err != nil:
			failed++
		case st.File == "":
			empty++
		default:
			written++
		}
	}
	logger.Infof("done: %d files written, %d types empty, %d failed", written, empty, failed)

	if err != nil {
		if err, ok := err.(errwrap.Wrapper); ok {
			errs := err.WrappedErrors()
			logger.Errorf("%d resource types failed:", len(errs))
			for _, err := range errs {
				logger.Errorf("* %v", err)
			}
			return fmt.Errorf("%d of %d resource types failed", len(errs), len(statuses))
		}
		return err
	}

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "argexport:", err)
		os.Exit(1)
	}
}
