// Command masteryctl works with skill mastery data from the command
// line: it replays attempt logs into a local database, runs the
// readiness gate, plans sessions, scans for anomalies and calibrates
// tracing parameters from historical logs.
//
// Attempt logs are JSON Lines, one attempt per line:
//
//	{"skill_id":"add-1d","session_id":"s1","correct":true,"at":"2026-03-01T09:00:00Z"}
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/soroban-labs/mastery"
	"github.com/soroban-labs/mastery/calibrate"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "masteryctl",
		Short:   "Inspect and maintain skill mastery data",
		Version: Version,
	}

	rootCmd.PersistentFlags().String("config", "mastery.yml", "configuration file")
	rootCmd.PersistentFlags().String("db", "mastery-db", "badger database directory")
	rootCmd.PersistentFlags().String("skills", "skills.json", "skill catalog file")

	rootCmd.AddCommand(recordCmd())
	rootCmd.AddCommand(assessCmd())
	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(calibrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func recordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record [attempts.jsonl]",
		Short: "Replay an attempt log into the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			playerID, _ := cmd.Flags().GetString("player")

			attempts, err := readAttempts(args[0])
			if err != nil {
				return err
			}

			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.engine.RecordAttempts(cmd.Context(), playerID, attempts); err != nil {
				return err
			}
			fmt.Printf("recorded %d attempts for player %s\n", len(attempts), playerID)
			return nil
		},
	}

	cmd.Flags().StringP("player", "p", "", "player ID")
	_ = cmd.MarkFlagRequired("player")
	return cmd
}

func assessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assess [skill-id]",
		Short: "Run the readiness gate for one skill, or all practiced skills",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			playerID, _ := cmd.Flags().GetString("player")

			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			if len(args) == 1 {
				r, err := app.engine.Assess(cmd.Context(), playerID, args[0])
				if err != nil {
					return err
				}
				return printJSON(r)
			}

			all, err := app.engine.AssessAll(cmd.Context(), playerID)
			if err != nil {
				return err
			}
			return printJSON(all)
		},
	}

	cmd.Flags().StringP("player", "p", "", "player ID")
	_ = cmd.MarkFlagRequired("player")
	return cmd
}

func planCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Build the next-session plan for a player",
		RunE: func(cmd *cobra.Command, args []string) error {
			playerID, _ := cmd.Flags().GetString("player")

			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			plan, err := app.engine.PlanSession(cmd.Context(), playerID)
			if err != nil {
				return err
			}
			return printJSON(plan)
		},
	}

	cmd.Flags().StringP("player", "p", "", "player ID")
	_ = cmd.MarkFlagRequired("player")
	return cmd
}

func scanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Detect anomalies for a player",
		RunE: func(cmd *cobra.Command, args []string) error {
			playerID, _ := cmd.Flags().GetString("player")
			skipsPath, _ := cmd.Flags().GetString("skips")

			var skips []mastery.SkipEvent
			if skipsPath != "" {
				var err error
				skips, err = readSkips(skipsPath)
				if err != nil {
					return err
				}
			}

			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			anomalies, err := app.engine.Anomalies(cmd.Context(), playerID, skips)
			if err != nil {
				return err
			}
			return printJSON(anomalies)
		},
	}

	cmd.Flags().StringP("player", "p", "", "player ID")
	cmd.Flags().String("skips", "", "skip event log (JSON Lines)")
	_ = cmd.MarkFlagRequired("player")
	return cmd
}

func calibrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calibrate [attempts.jsonl]",
		Short: "Fit tracing parameters from an attempt log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			epochs, _ := cmd.Flags().GetInt("epochs")
			batch, _ := cmd.Flags().GetInt("batch")

			attempts, err := readAttempts(args[0])
			if err != nil {
				return err
			}

			c := calibrate.NewCalibrator(calibrate.Config{
				Epochs:        epochs,
				MiniBatchSize: batch,
			})
			params, err := c.Fit(cmd.Context(), attempts)
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stderr, "loss: %.6f (over %d attempts)\n",
				c.Loss(params, attempts), len(attempts))
			return printJSON(params)
		},
	}

	cmd.Flags().Int("epochs", 0, "training epochs (0 = default)")
	cmd.Flags().Int("batch", 0, "mini-batch size (0 = default)")
	return cmd
}

func readAttempts(path string) ([]mastery.Attempt, error) {
	var attempts []mastery.Attempt
	err := readLines(path, func(line []byte) error {
		var a mastery.Attempt
		if err := json.Unmarshal(line, &a); err != nil {
			return err
		}
		attempts = append(attempts, a)
		return nil
	})
	return attempts, err
}

func readSkips(path string) ([]mastery.SkipEvent, error) {
	var skips []mastery.SkipEvent
	err := readLines(path, func(line []byte) error {
		var s mastery.SkipEvent
		if err := json.Unmarshal(line, &s); err != nil {
			return err
		}
		skips = append(skips, s)
		return nil
	})
	return skips, err
}

func readLines(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
	}
	return scanner.Err()
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
