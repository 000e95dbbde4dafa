package main

import (
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/tabloss/losses"
	"github.com/YuminosukeSato/tabloss/pkg/errors"
	"github.com/YuminosukeSato/tabloss/pkg/log"
)

// NewCLI builds the root command.
func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "tabloss",
		Short:         "Composite multi-target losses for tabular models",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			return log.SetupLogger(level)
		},
	}
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newValidateCmd(),
		newEvalCmd(),
		newBreakdownCmd(),
	)
	return rootCmd
}

// addConfigFlag registers the --config flag shared by every subcommand.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "", "Loss configuration file (.yaml, .yml or .json)")
	_ = cmd.MarkFlagRequired("config")
}

// addDataFlags registers the prediction and target CSV flags.
func addDataFlags(cmd *cobra.Command) {
	cmd.Flags().String("pred", "", "CSV file with one row of predictions per sample")
	cmd.Flags().String("target", "", "CSV file with one row of targets per sample")
	cmd.Flags().Bool("header", false, "Skip the first line of each CSV file")
	_ = cmd.MarkFlagRequired("pred")
	_ = cmd.MarkFlagRequired("target")
}

// loadLoss reads --config and constructs the loss.
func loadLoss(cmd *cobra.Command) (*losses.RegressionAndClassificationLoss, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := losses.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	loss, err := losses.New(cfg, losses.WithLogger(log.GetLoggerWithName("cli")))
	if err != nil {
		return nil, errors.Wrapf(err, "build loss from %s", path)
	}
	return loss, nil
}
