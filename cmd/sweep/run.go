package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	core "github.com/3cpo-dev/sweep/internal/core"
	"github.com/3cpo-dev/sweep/internal/dispatch"
	"github.com/3cpo-dev/sweep/internal/telemetry"
)

// Run a command on the selected hosts
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] command [args...]",
		Short: "Send a shell command to every host matching a selector",
		Example: `  sweep run -s "pool:web status:allocated" uptime
  sweep run -s "memory_size_total:64gb" -o -- df -h /
  cat hosts.txt | sweep run -i -p 'systemctl restart nginx && echo ok'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			cfg, err := core.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			opts := optionsFromFlags(cmd, cfg)
			if err := opts.Validate(); err != nil {
				return err
			}
			if len(args) == 0 {
				return &dispatch.UsageError{Msg: "no command given"}
			}

			resolver, err := core.NewResolver(cfg, !opts.Input)
			if err != nil {
				return err
			}
			backend, _ := cmd.Flags().GetString("backend")
			if backend == "" {
				backend = cfg.Transport.Backend
			}
			tr, err := core.NewTransportRegistry(cfg).Get(backend)
			if err != nil {
				return err
			}

			metrics := telemetry.NewCollector(cfg.Telemetry.Enabled)
			defer metrics.Flush()

			r := &core.Runner{
				Resolver:  resolver,
				Transport: tr,
				Renderer:  &dispatch.Renderer{Out: cmd.OutOrStdout()},
				Metrics:   metrics,
				Stdin:     os.Stdin,
				PromptOut: cmd.ErrOrStderr(),
			}
			noHistory, _ := cmd.Flags().GetBool("no-history")
			if cfg.HistoryEnabled() && !noHistory {
				store, err := core.NewStore(cfg.History.Path)
				if err != nil {
					log.Warn().Err(err).Str("path", cfg.History.Path).Msg("Run history unavailable")
				} else {
					defer store.Close()
					r.Store = store
				}
			}
			return r.Run(cmd.Context(), opts, args)
		},
	}
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().BoolP("verbose", "v", false, "show full hostnames")
	cmd.Flags().BoolP("pass", "p", false, "pass the command through without shell escaping")
	cmd.Flags().BoolP("async", "a", false, "ask the backend to run asynchronously")
	cmd.Flags().IntP("forks", "f", dispatch.DefaultForks, "maximum hosts contacted at once")
	cmd.Flags().IntP("timeout", "t", dispatch.DefaultTimeout, "per-run timeout in seconds")
	cmd.Flags().BoolP("input", "i", false, "read hosts from stdin, one per line")
	cmd.Flags().BoolP("one-line", "o", false, "one line per host for unstructured results")
	cmd.Flags().StringP("selector", "s", "", `inventory selector, e.g. "pool:web status:allocated"`)
	cmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	cmd.Flags().String("backend", "", "transport backend: func or ssh (default from config)")
	cmd.Flags().Bool("no-history", false, "do not record this run in the history")
	return cmd
}

// optionsFromFlags reads the run flags. Forks and timeout fall back to the
// config file when not given on the command line.
func optionsFromFlags(cmd *cobra.Command, cfg core.Config) dispatch.Options {
	var o dispatch.Options
	o.Verbose, _ = cmd.Flags().GetBool("verbose")
	o.Pass, _ = cmd.Flags().GetBool("pass")
	o.Async, _ = cmd.Flags().GetBool("async")
	o.Forks, _ = cmd.Flags().GetInt("forks")
	o.Timeout, _ = cmd.Flags().GetInt("timeout")
	o.Input, _ = cmd.Flags().GetBool("input")
	o.OneLine, _ = cmd.Flags().GetBool("one-line")
	o.Selector, _ = cmd.Flags().GetString("selector")
	o.Confirmed, _ = cmd.Flags().GetBool("yes")
	if !cmd.Flags().Changed("forks") && cfg.Defaults.Forks > 0 {
		o.Forks = cfg.Defaults.Forks
	}
	if !cmd.Flags().Changed("timeout") && cfg.Defaults.TimeoutSeconds > 0 {
		o.Timeout = cfg.Defaults.TimeoutSeconds
	}
	return o
}
