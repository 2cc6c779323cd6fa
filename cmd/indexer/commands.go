package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/goran-ethernal/StarkIndexor/internal/common"
	"github.com/goran-ethernal/StarkIndexor/internal/jobs"
	"github.com/goran-ethernal/StarkIndexor/internal/logger"
	"github.com/goran-ethernal/StarkIndexor/internal/source"
	"github.com/goran-ethernal/StarkIndexor/internal/store"
	pkgconfig "github.com/goran-ethernal/StarkIndexor/pkg/config"
	"github.com/goran-ethernal/StarkIndexor/pkg/indexer"
	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
)

var (
	listRegistered bool
	replayOffline  bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List contract kinds and the events they handle",
	Long: `List every contract kind with the events its handler set consumes.
With --registered, list the contracts registered in the store instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if listRegistered {
			return listRegisteredContracts(cmd)
		}

		fmt.Println("Available contract kinds:")
		for _, kind := range indexer.ListRegistered() {
			h, err := indexer.Create(kind, indexer.Deps{Log: logger.NewNopLogger()})
			if err != nil {
				return err
			}

			line := fmt.Sprintf("  - %s", kind)
			if child, ok := kind.Child(); ok {
				line += fmt.Sprintf(" (creates %s)", child)
			}
			fmt.Println(line)
			fmt.Printf("      %s\n", strings.Join(h.Events(), ", "))
		}
		return nil
	},
}

func listRegisteredContracts(cmd *cobra.Command) error {
	a, err := bootstrap(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	var contracts []*store.RegisteredContract
	err = a.store.View(cmd.Context(), func(tx *store.Tx) error {
		var err error
		contracts, err = tx.ListRegisteredContracts()
		return err
	})
	if err != nil {
		return err
	}

	if len(contracts) == 0 {
		fmt.Println("(no contracts registered)")
		return nil
	}

	for _, c := range contracts {
		fmt.Printf("%-24s %-16s %s (block %d)\n", c.Name, c.Kind, c.Address, c.CreatedAtBlock)
	}
	return nil
}

var replayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Apply events from a JSON lines file",
	Long: `Apply decoded event envelopes, one JSON object per line, through the same
handlers the live indexer uses. Blocks at or below the stored cursor are skipped
so a replay can be resumed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a, err := bootstrap(ctx, !replayOffline)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.dispatcher.Load(ctx, a.cfg.Contracts); err != nil {
			return fmt.Errorf("failed to load contracts: %w", err)
		}

		replay, err := source.NewReplay(a.dispatcher, a.syncManager,
			logger.NewComponentLoggerFromConfig(common.ComponentEventSource, a.cfg.Logging))
		if err != nil {
			return err
		}

		applied, err := replay.RunFile(ctx, args[0])
		if err != nil {
			return fmt.Errorf("replay failed after %d event(s): %w", applied, err)
		}

		a.log.Infof("Replayed %d event(s) from %s", applied, args[0])
		return nil
	},
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Recalculate agent progression scores once",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a, err := bootstrap(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()

		return newScoringJob(a).Run(ctx)
	},
}

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "Recompute stake window activation once",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a, err := bootstrap(ctx, false)
		if err != nil {
			return err
		}
		defer a.Close()

		job := jobs.NewWindowJob(a.store, nil,
			logger.NewComponentLoggerFromConfig(common.ComponentWindowJob, a.cfg.Logging))
		return job.Run(ctx)
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		schema := jsonschema.Reflect(&pkgconfig.Config{})

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(schema)
	},
}

func init() {
	listCmd.Flags().BoolVar(&listRegistered, "registered", false, "list contracts registered in the store")
	replayCmd.Flags().BoolVar(&replayOffline, "offline", false,
		"do not connect to the node; token metadata falls back to defaults")
}
