// Command vgd is the bulk deployment driver: it reads a declarative
// vg.yaml/vg.toml configuration of source->destination mappings and
// compiles (or raw-copies) each one into place.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/montanaflynn/stats"
	"github.com/spf13/cobra"

	"github.com/kanopi/vg/internal/deploy"
	"github.com/kanopi/vg/internal/obs"
)

var log = obs.New("vgd")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(obs.ExitGeneral)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath   string
		validate     bool
		timing       bool
		bench        bool
		cacheDiag    bool
		verbose      bool
		printExample bool
		implemFlags  []string
		cachedFlags  []string
	)

	cmd := &cobra.Command{
		Use:           "vgd [flags]",
		Short:         "Compile every mapping in a vg.yaml/vg.toml deployment configuration",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if printExample {
				fmt.Print(deploy.ExampleYAML())
				return nil
			}

			cfg, err := deploy.LoadConfig(configPath)
			if err != nil {
				return err
			}

			impls, err := parseKeyValues(implemFlags)
			if err != nil {
				return err
			}
			for k, v := range impls {
				if cfg.Implementations == nil {
					cfg.Implementations = map[string]string{}
				}
				cfg.Implementations[k] = v
			}
			cached, err := parseKeyValues(cachedFlags)
			if err != nil {
				return err
			}
			for k, v := range cached {
				if cfg.Cached == nil {
					cfg.Cached = map[string]string{}
				}
				cfg.Cached[k] = v
			}

			drv, err := deploy.NewDriver(cfg, func(format string, a ...any) {
				log.Warnf(format, a...)
			})
			if err != nil {
				return err
			}
			drv.Validate = validate

			runStart := time.Now()
			results, err := drv.Run(cfg.Mappings)
			if err != nil {
				return err
			}
			elapsed := time.Since(runStart)

			exitCode := obs.ExitOK
			for _, r := range results {
				log.Debugf(verbose, "%s %s -> %s (%s)", r.Status, r.Src, r.Dst, r.Duration)
				if r.Status == deploy.StatusError {
					log.Errf("%s -> %s: %v", r.Src, r.Dst, r.Err)
					exitCode = obs.ExitCodeFor(r.Err)
				}
			}

			if cacheDiag {
				printCacheDiagnostics(results)
			}
			if timing || bench {
				printTiming(results, elapsed)
			}

			if exitCode != obs.ExitOK {
				os.Exit(exitCode)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "explicit path to a vg.yaml/vg.toml deployment configuration")
	cmd.Flags().BoolVarP(&validate, "validate", "r", false, "compile every mapping but write nothing")
	cmd.Flags().BoolVarP(&timing, "timing", "t", false, "print per-run timing summary")
	cmd.Flags().BoolVarP(&bench, "bench", "b", false, "print the same aggregate timing summary as -t (no per-mapping lines)")
	cmd.Flags().BoolVarP(&cacheDiag, "cache-diagnostics", "o", false, "print a summary of mapping outcomes")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print a line per processed mapping")
	cmd.Flags().BoolVarP(&printExample, "example", "e", false, "print an example vg.yaml and exit")
	cmd.Flags().StringArrayVarP(&implemFlags, "implementation", "i", nil, "key:value environment seed (repeatable)")
	cmd.Flags().StringArrayVarP(&cachedFlags, "cached", "c", nil, "key:value virtual document seed (repeatable)")

	return cmd
}

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

func printCacheDiagnostics(results []deploy.Result) {
	counts := map[deploy.Status]int{}
	var totalBytes uint64
	for _, r := range results {
		counts[r.Status]++
		totalBytes += uint64(len(r.Src) + len(r.Dst))
	}
	fmt.Printf("mappings: %s written, %s unchanged, %s ignored, %s errors (%s processed)\n",
		humanize.Comma(int64(counts[deploy.StatusSuccess])),
		humanize.Comma(int64(counts[deploy.StatusUnchanged])),
		humanize.Comma(int64(counts[deploy.StatusIgnored])),
		humanize.Comma(int64(counts[deploy.StatusError])),
		humanize.Bytes(totalBytes))
}

func printTiming(results []deploy.Result, elapsed time.Duration) {
	if len(results) == 0 {
		fmt.Printf("no mappings processed (%s)\n", elapsed)
		return
	}

	millis := make([]float64, 0, len(results))
	for _, r := range results {
		millis = append(millis, float64(r.Duration.Microseconds())/1000)
	}

	mean, _ := stats.Mean(millis)
	median, _ := stats.Median(millis)
	p95, _ := stats.Percentile(millis, 95)

	fmt.Printf("compiled %d mappings in %s (mean %.2fms, median %.2fms, p95 %.2fms)\n",
		len(results), elapsed, mean, median, p95)
}
