package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rbstore/config"
	"rbstore/infra/logging"
	"rbstore/tools/stress"
)

func stressCmd() *cobra.Command {
	var workers, readers, ops, keySpace, valueSize int
	var seed int64

	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Run a concurrent stress round against a pebble reference",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			log, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}

			sc := stress.Config{
				Workers:   cfg.Stress.Workers,
				Readers:   cfg.Stress.Readers,
				Ops:       cfg.Stress.Ops,
				KeySpace:  cfg.Stress.KeySpace,
				ValueSize: cfg.Stress.ValueSize,
				Seed:      cfg.Stress.Seed,
			}
			flags := cmd.Flags()
			if flags.Changed("workers") {
				sc.Workers = workers
			}
			if flags.Changed("readers") {
				sc.Readers = readers
			}
			if flags.Changed("ops") {
				sc.Ops = ops
			}
			if flags.Changed("keys") {
				sc.KeySpace = keySpace
			}
			if flags.Changed("value-size") {
				sc.ValueSize = valueSize
			}
			if flags.Changed("seed") {
				sc.Seed = seed
			}

			rep, err := stress.Run(cmd.Context(), sc, log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "verified %d keys: %d puts, %d gets (%d hits) in %s\n",
				rep.Keys, rep.Puts, rep.Gets, rep.Hits, rep.Elapsed)
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "writer goroutines")
	cmd.Flags().IntVarP(&readers, "readers", "r", 0, "reader goroutines")
	cmd.Flags().IntVarP(&ops, "ops", "n", 0, "puts per writer")
	cmd.Flags().IntVar(&keySpace, "keys", 0, "distinct keys per writer")
	cmd.Flags().IntVar(&valueSize, "value-size", 0, "value size in bytes")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	return cmd
}
