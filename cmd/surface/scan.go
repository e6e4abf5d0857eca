package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/surface/internal/errors"
	"github.com/vango-dev/surface/pkg/binder"
)

func scanCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "scan [page]",
		Short: "List the channels a page binds",
		Long: `Load a page and print every bound channel with the elements and
attribute kinds that reference it.

Examples:
  surface scan panel.html
  surface scan https://mixer.local/panel --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags, firstArg(args))
			if err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), cfg.Debug)

			page, err := loadPage(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			b := binder.New(page.Document, binder.Options{Logger: logger})
			bindings := describeBindings(b.Bindings())
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				err := enc.Encode(map[string]any{
					"channels":  b.Channels(),
					"bindings":  bindings,
					"listeners": b.ListenerCount(),
				})
				if err != nil {
					return errors.New("S064").Wrap(err)
				}
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CHANNEL\tKIND\tELEMENT")
			for _, bi := range bindings {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", bi.Channel, bi.Kind, bi.Element)
			}
			if err := tw.Flush(); err != nil {
				return errors.New("S064").Wrap(err)
			}
			fmt.Fprintf(out, "\n%d channels, %d bindings, %d listeners\n",
				len(b.Channels()), len(bindings), b.ListenerCount())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")

	return cmd
}
