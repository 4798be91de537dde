// Command breezescan is a development harness wiring the Breeze
// library packages to a local filesystem: cheat-text compile/annotate
// and candidate-file indexing work standalone; scan start/continue
// require a platform ProcessMemoryService this harness does not
// provide (spec §6 declares no CLI surface for the core itself).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/tomvita/Breezehand-Overlay-sub000/annotate"
	"github.com/tomvita/Breezehand-Overlay-sub000/arm64disasm"
	"github.com/tomvita/Breezehand-Overlay-sub000/candidateindex"
	"github.com/tomvita/Breezehand-Overlay-sub000/cheat"
	"github.com/tomvita/Breezehand-Overlay-sub000/condition"
	"github.com/tomvita/Breezehand-Overlay-sub000/config"
)

func main() {
	defer glog.Flush()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "breezescan",
		Short: "development harness for the Breeze candidate scanner, cheat codec and opcode annotator",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a breeze.yaml config file (optional)")

	root.AddCommand(newScanCmd(), newCheatCmd(), newIndexCmd(&configPath))
	return root
}

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "primary/continue memory scans (requires a platform ProcessMemoryService)",
	}
	notImplemented := func(*cobra.Command, []string) error {
		return fmt.Errorf("scan: no ProcessMemoryService is wired into this harness; link one in for your target platform")
	}
	cmd.AddCommand(&cobra.Command{Use: "start", Short: "run a primary full-sweep scan", RunE: notImplemented})
	cmd.AddCommand(&cobra.Command{Use: "continue", Short: "run a secondary candidate-refinement scan", RunE: notImplemented})
	return cmd
}

func newCheatCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "cheat", Short: "cheat script compile/annotate"}

	cmd.AddCommand(&cobra.Command{
		Use:   "compile <file>",
		Short: "compile a cheat-text file and print the resulting entry count",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			svc := newInMemoryCheatService()
			ok, err := cheat.Compile(context.Background(), svc, string(data))
			if err != nil {
				return err
			}
			entries, _ := svc.ListCheats(context.Background())
			fmt.Printf("compiled %d cheat(s), clean=%v\n", len(entries), ok)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "annotate <file>",
		Short: "compile a cheat-text file and print opcode annotations for every cheat",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			minimal, _ := c.Flags().GetBool("minimal")

			svc := newInMemoryCheatService()
			if _, err := cheat.Compile(context.Background(), svc, string(data)); err != nil {
				return err
			}
			entries, _ := svc.ListCheats(context.Background())

			disasm := arm64disasm.New()
			for _, e := range entries {
				fmt.Printf("=== %s (id=%d, master=%v) ===\n", e.Name, e.ID, e.IsMaster())
				for _, note := range annotate.Walk(e.Opcodes, minimal, disasm) {
					fmt.Println(note)
				}
			}
			return nil
		},
	})
	cmd.PersistentFlags().Bool("minimal", true, "use the annotator's minimal note form instead of verbose")

	return cmd
}

func newIndexCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{Use: "index", Short: "candidate file index"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list [roots...]",
		Short: "list deduplicated candidate files across one or more roots",
		RunE: func(c *cobra.Command, args []string) error {
			roots := args
			if len(roots) == 0 {
				cfg, err := loadConfigOrDefault(*configPath)
				if err != nil {
					return err
				}
				roots = cfg.CandidateRoots
			}
			paths, err := candidateindex.ListCandidates(roots)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Println(p)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "latest [roots...]",
		Short: "print the most recently produced candidate's condition",
		RunE: func(c *cobra.Command, args []string) error {
			roots := args
			if len(roots) == 0 {
				cfg, err := loadConfigOrDefault(*configPath)
				if err != nil {
					return err
				}
				roots = cfg.CandidateRoots
			}
			cond, path, err := candidateindex.LoadLatestCondition(roots)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %s\n", path, condition.Summary(cond))
			return nil
		},
	})

	return cmd
}

func loadConfigOrDefault(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
