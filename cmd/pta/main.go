// Command pta is thin cobra/viper wiring over the core's Options/Driver
// entry points (§1: "explicitly out of scope" for the core itself). It
// binds the §6.2 options table to flags, builds a Driver, and prints the
// §6.3 results summary -- no analysis logic lives in this package.
//
// A real deployment supplies its own mir.Oracle backed by a monomorphizing
// compiler's type context and MIR tables (§6.1); this command's --demo flag
// instead wires the in-memory internal/fixture Oracle so the CLI is
// runnable and testable without one.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gopta/pta/internal/pta/path"
	"github.com/gopta/pta/pta"
	"github.com/gopta/pta/pta/reach"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	pta.BindOptions(v)

	var demo bool
	var computeReach bool

	cmd := &cobra.Command{
		Use:   "pta",
		Short: "whole-program pointer and call-graph analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !demo {
				return fmt.Errorf("no front-end oracle wired: pass --demo to run against the built-in fixture program, or embed this core with a real mir.Oracle")
			}
			return runDemo(v, computeReach)
		},
	}

	flags := cmd.Flags()
	flags.String("entry-function-name", "", "select entry by item name")
	flags.Uint32("entry-def-id", 0, "select entry by local def-index")
	flags.Bool("has-entry-def-id", false, "use --entry-def-id instead of --entry-function-name")
	flags.String("analysis-flavor", "ci", "context strategy: ci, kcs, or kobj")
	flags.Int("context-depth", 1, "k for callsite/object context strategies")
	flags.Bool("cast-constraint", true, "enable the basic-pointer cast-constraint optimization")
	flags.Bool("type-filter", true, "enable the Direct-propagation type filter")
	flags.String("dump-pts", "", "write the points-to relation to this path")
	flags.String("dump-call-graph", "", "write the call graph to this path")
	flags.String("dump-mir", "", "write the lowered MIR to this path")
	flags.String("dump-stats", "", "write run statistics to this path")
	flags.String("dump-type-indices", "", "write the type-index table to this path")
	flags.String("dump-dyn-calls", "", "write unresolved dynamic callsites to this path")
	flags.String("dump-unsafe-stats", "", "write unsafe-operation statistics to this path")
	flags.Bool("verbose", false, "enable debug-level logging")
	flags.BoolVar(&demo, "demo", false, "run against the built-in fixture program instead of a real oracle")
	flags.BoolVar(&computeReach, "reach", false, "also run the pta/reach concurrent reachability precomputation")

	_ = v.BindPFlag("pta.entry-def-name", flags.Lookup("entry-function-name"))
	_ = v.BindPFlag("pta.entry-def-id", flags.Lookup("entry-def-id"))
	_ = v.BindPFlag("pta.has-entry-def-id", flags.Lookup("has-entry-def-id"))
	_ = v.BindPFlag("pta.analysis-flavor", flags.Lookup("analysis-flavor"))
	_ = v.BindPFlag("pta.context-depth", flags.Lookup("context-depth"))
	_ = v.BindPFlag("pta.cast-constraint", flags.Lookup("cast-constraint"))
	_ = v.BindPFlag("pta.type-filter", flags.Lookup("type-filter"))
	_ = v.BindPFlag("pta.dump-pts", flags.Lookup("dump-pts"))
	_ = v.BindPFlag("pta.dump-call-graph", flags.Lookup("dump-call-graph"))
	_ = v.BindPFlag("pta.dump-mir", flags.Lookup("dump-mir"))
	_ = v.BindPFlag("pta.dump-stats", flags.Lookup("dump-stats"))
	_ = v.BindPFlag("pta.dump-type-indices", flags.Lookup("dump-type-indices"))
	_ = v.BindPFlag("pta.dump-dyn-calls", flags.Lookup("dump-dyn-calls"))
	_ = v.BindPFlag("pta.dump-unsafe-stats", flags.Lookup("dump-unsafe-stats"))
	_ = v.BindPFlag("pta.verbose", flags.Lookup("verbose"))

	v.SetEnvPrefix("PTA")
	v.AutomaticEnv()

	return cmd
}

func runDemo(v *viper.Viper, computeReach bool) error {
	opts := pta.OptionsFromViper(v)
	if opts.EntryDefName == "" && !opts.HasEntryDefID {
		opts.EntryDefName = "main"
	}

	oracle, entryName := demoProgram()
	if opts.EntryDefName == "" {
		opts.EntryDefName = entryName
	}

	driver := pta.NewDriver(oracle, opts, nil)
	results, err := driver.Run()
	if err != nil {
		return err
	}

	fmt.Printf("reached %d function(s), %d call-graph edge(s), %d PAG node(s)\n",
		results.Stats.ReachFuncs, len(results.CallGraphEdges()), results.Stats.Nodes)
	if !results.Errors.Empty() {
		fmt.Printf("non-fatal: %d mir-unavailable, %d resolve-failure, %d type-mismatch, %d cast-cycle\n",
			len(results.Errors.MirUnavailable), len(results.Errors.ResolveFailure),
			results.Errors.TypeMismatch, len(results.Errors.CastCycle))
	}

	if computeReach {
		roots := make(map[path.FuncID]bool)
		for _, e := range results.CallGraphEdges() {
			roots[e.Caller.Func] = true
		}
		rootList := make([]path.FuncID, 0, len(roots))
		for f := range roots {
			rootList = append(rootList, f)
		}
		r, err := reach.Compute(context.Background(), results.CallGraph, rootList)
		if err != nil {
			return err
		}
		fmt.Printf("reachability precomputed for %d root(s)\n", len(rootList))
		_ = r
	}
	return nil
}
