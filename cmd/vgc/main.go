// Command vgc compiles a single template target against a root directory
// and writes the compiled output to standard output.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kanopi/vg/internal/obs"
	"github.com/kanopi/vg/pkg/vg"
)

var log = obs.New("vgc")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(obs.ExitGeneral)
	}
}

func newRootCmd() *cobra.Command {
	var (
		noCache     bool
		implemFlags []string
		cachedFlags []string
	)

	cmd := &cobra.Command{
		Use:           "vgc [flags] ROOT TARGET",
		Short:         "Compile one template target against ROOT and print the result",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, target := args[0], args[1]

			impls, err := parseKeyValues(implemFlags)
			if err != nil {
				return err
			}
			cached, err := parseKeyValues(cachedFlags)
			if err != nil {
				return err
			}

			opts := vg.Options{
				Root:    root,
				Target:  target,
				NoCache: noCache,
				WarnFunc: func(format string, a ...any) {
					log.Warnf(format, a...)
				},
			}
			for k, v := range impls {
				opts.Implementations = append(opts.Implementations, vg.Implementation{Key: k, Value: v})
			}
			for k, v := range cached {
				opts.Cached = append(opts.Cached, vg.Cached{Key: k, Value: v})
			}

			res, err := vg.Compile(opts)
			if err != nil {
				log.Errf("%v", err)
				os.Exit(obs.ExitCodeFor(err))
				return nil
			}
			_, err = os.Stdout.Write(res.Output)
			return err
		},
	}

	cmd.Flags().BoolVarP(&noCache, "no-cache", "n", false, "re-read and re-parse non-seeded documents on every reference")
	cmd.Flags().StringArrayVarP(&implemFlags, "implementation", "i", nil, "key:value environment seed (repeatable)")
	cmd.Flags().StringArrayVarP(&cachedFlags, "cached", "c", nil, "key:value virtual document seed (repeatable)")

	return cmd
}

// parseKeyValues parses a list of "key:value" strings, as used by both
// --implementation and --cached. The first colon is the separator; values
// may themselves contain colons.
func parseKeyValues(pairs []string) (map[string]string, error) {
	out := map[string]string{}
	for _, p := range pairs {
		idx := strings.Index(p, ":")
		if idx < 0 {
			return nil, fmt.Errorf("invalid key:value pair %q (expected KEY:VALUE)", p)
		}
		out[p[:idx]] = p[idx+1:]
	}
	return out, nil
}
