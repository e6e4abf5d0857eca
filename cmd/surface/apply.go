package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/surface/internal/errors"
	"github.com/vango-dev/surface/pkg/binder"
)

// assignment is one channel=value argument.
type assignment struct {
	channel string
	value   any
}

func applyCmd(flags *globalFlags) *cobra.Command {
	var (
		asJSON bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "apply <page> <channel=value>...",
		Short: "Apply channel updates to a page offline",
		Long: `Load a page, apply channel updates as if the server had sent them
and print the resulting HTML. No connection is made.

Values are strings unless --json is given, in which case each value is
parsed as JSON (numbers, booleans, null). Style channels take their
object as a plain string value.

Examples:
  surface apply panel.html volume=42 mute=on
  surface apply panel.html 'meter={"width":"40%"}'
  surface apply panel.html --json level=0.5
  surface apply panel.html log='<b>ready</b>' -o out.html`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			updates, err := parseAssignments(args[1:], asJSON)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(flags, args[0])
			if err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), cfg.Debug)

			page, err := loadPage(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			b := binder.New(page.Document, binder.Options{
				Logger:     logger,
				AutoRescan: cfg.AutoRescan,
			})
			for _, u := range updates {
				b.ApplyUpdate(u.channel, u.value)
			}

			html, err := page.Document.HTML()
			if err != nil {
				return errors.New("S064").Wrap(err)
			}
			if output == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), html)
			} else {
				err = os.WriteFile(output, []byte(html+"\n"), 0644)
			}
			if err != nil {
				return errors.New("S064").Wrap(err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Parse values as JSON")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write HTML to a file instead of stdout")

	return cmd
}

// parseAssignments splits channel=value arguments at the first '='.
func parseAssignments(args []string, asJSON bool) ([]assignment, error) {
	out := make([]assignment, 0, len(args))
	for _, arg := range args {
		channel, raw, ok := strings.Cut(arg, "=")
		if !ok || channel == "" {
			return nil, errors.New("S060").
				WithDetail(fmt.Sprintf("%q is not channel=value", arg)).
				WithExample("surface apply panel.html volume=42")
		}
		if !asJSON {
			out = append(out, assignment{channel: channel, value: raw})
			continue
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, errors.New("S061").
				WithDetail(fmt.Sprintf("Value for %s is not JSON: %s", channel, raw)).
				Wrap(err)
		}
		out = append(out, assignment{channel: channel, value: v})
	}
	return out, nil
}
