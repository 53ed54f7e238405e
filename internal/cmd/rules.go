package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nucle0tides/rosefs/internal/config"
	"github.com/nucle0tides/rosefs/internal/rules"
)

var rulesRunCmd = &cobra.Command{
	Use:   "rules-run <matcher> <tags> <action>",
	Short: "Run one ad-hoc metadata rule against the library",
	Long:  `Matches tracks by matcher against the comma-separated tag fields, and applies action (kind:payload) to every match.`,
	Args:  cobra.ExactArgs(3),
	RunE:  runRulesRun,
}

var rulesExecStoredCmd = &cobra.Command{
	Use:   "rules-exec-stored",
	Short: "Run every rule persisted in stored_metadata_rules",
	RunE:  runRulesExecStored,
}

func init() {
	rootCmd.AddCommand(rulesRunCmd)
	rootCmd.AddCommand(rulesExecStoredCmd)

	for _, c := range []*cobra.Command{rulesRunCmd, rulesExecStoredCmd} {
		c.Flags().Bool("dry-run", false, "report changes without writing them")
		c.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	}
}

func runOptionsFromFlags(cmd *cobra.Command) rules.RunOptions {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	yes, _ := cmd.Flags().GetBool("yes")
	return rules.RunOptions{
		DryRun:     dryRun,
		ConfirmYes: yes,
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
	}
}

func runRulesRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer st.Close()

	tagNames := strings.Split(args[1], ",")
	rule, err := rules.ParseRule(args[0], tagNames, args[2])
	if err != nil {
		return fmt.Errorf("invalid rule: %w", err)
	}

	engine := rules.New(cfg, st)
	changes, err := engine.ExecuteRule(ctx, rule, runOptionsFromFlags(cmd))
	if err != nil {
		return fmt.Errorf("rule run: %w", err)
	}
	printChanges(changes)
	return nil
}

func runRulesExecStored(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer st.Close()

	engine := rules.New(cfg, st)
	changes, err := engine.ExecuteStoredRules(ctx, runOptionsFromFlags(cmd))
	if err != nil {
		return fmt.Errorf("stored rules run: %w", err)
	}
	printChanges(changes)
	return nil
}

func printChanges(changes []rules.Change) {
	for _, c := range changes {
		fmt.Printf("%s: %s %q -> %q\n", c.TrackSourcePath, c.Field, c.Before, c.After)
	}
	fmt.Printf("%d field(s) changed.\n", len(changes))
}
