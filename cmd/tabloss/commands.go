package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabloss/core/model"
	"github.com/YuminosukeSato/tabloss/losses"
	"github.com/YuminosukeSato/tabloss/metrics"
	"github.com/YuminosukeSato/tabloss/pkg/errors"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a loss configuration and print its column layout",
		Args:  cobra.NoArgs,
		RunE:  ValidateHandler,
	}
	addConfigFlag(cmd)
	return cmd
}

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Compute the loss of predictions against targets",
		Args:  cobra.NoArgs,
		RunE:  EvalHandler,
	}
	addConfigFlag(cmd)
	addDataFlags(cmd)
	cmd.Flags().Bool("grad", false, "Also print the Frobenius norm of the gradient")
	return cmd
}

func newBreakdownCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "breakdown",
		Short: "Show the contribution of every target to the loss",
		Args:  cobra.NoArgs,
		RunE:  BreakdownHandler,
	}
	addConfigFlag(cmd)
	addDataFlags(cmd)
	cmd.Flags().String("plot", "", "Write a bar chart of the contributions to this file (.png, .svg or .pdf)")
	cmd.Flags().Bool("metrics", false, "Also print per-target evaluation metrics")
	return cmd
}

// ValidateHandler prints the column-range table of a configuration.
func ValidateHandler(cmd *cobra.Command, args []string) error {
	loss, err := loadLoss(cmd)
	if err != nil {
		return err
	}
	cfg := loss.Config()
	layout := loss.Layout()
	w := cmd.OutOrStdout()

	var data [][]string
	for _, r := range layout.Ranges {
		weight := "-"
		if len(cfg.Weights) > 0 {
			weight = strconv.FormatFloat(cfg.Weights[r.Position], 'g', -1, 64)
		}
		data = append(data, []string{
			r.Kind.String(),
			strconv.Itoa(r.Target),
			fmt.Sprintf("%d:%d", r.PredStart, r.PredEnd),
			specDetail(cfg, r),
			weight,
		})
	}
	renderTable(w, []string{"KIND", "TARGET", "PRED COLUMNS", "SPEC", "WEIGHT"}, data)

	strategy := "independent"
	if cfg.BinaryTrick {
		strategy = "binary_trick"
	}
	fmt.Fprintf(w, "\nstrategy: %s, reduction: %s\n", strategy, cfg.Reduction)
	fmt.Fprintf(w, "prediction columns: %d, target columns: %d\n", layout.PredictionWidth(), layout.TargetWidth())
	return nil
}

// EvalHandler prints the scalar loss and optionally the gradient norm.
func EvalHandler(cmd *cobra.Command, args []string) error {
	loss, err := loadLoss(cmd)
	if err != nil {
		return err
	}
	pred, target, err := loadData(cmd)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()

	withGrad, _ := cmd.Flags().GetBool("grad")
	if !withGrad {
		value, err := errors.SafeCompute("eval", func() (float64, error) {
			return loss.Compute(pred, target)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "loss: %.10g\n", value)
		return nil
	}

	var (
		value float64
		grad  *mat.Dense
	)
	err = errors.SafeExecute("eval", func() error {
		var err error
		value, grad, err = model.ValueAndGradient(loss, pred, target)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "loss: %.10g\n", value)
	fmt.Fprintf(w, "grad_norm: %.10g\n", mat.Norm(grad, 2))
	return nil
}

// BreakdownHandler prints one row per target and optionally a bar chart.
func BreakdownHandler(cmd *cobra.Command, args []string) error {
	loss, err := loadLoss(cmd)
	if err != nil {
		return err
	}
	pred, target, err := loadData(cmd)
	if err != nil {
		return err
	}

	var b losses.Breakdown
	err = errors.SafeExecute("breakdown", func() error {
		var err error
		b, err = loss.Breakdown(pred, target)
		return err
	})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	var data [][]string
	for _, t := range b.Targets {
		data = append(data, []string{
			t.Kind.String(),
			strconv.Itoa(t.Target),
			formatFloat(t.Loss),
			formatFloat(t.Weight),
			formatFloat(t.Contribution),
		})
	}
	renderTable(w, []string{"KIND", "TARGET", "LOSS", "WEIGHT", "CONTRIBUTION"}, data)
	fmt.Fprintf(w, "\nregression: %.10g\nclassification: %.10g\ntotal: %.10g\n", b.Regression, b.Classification, b.Total)

	if path, _ := cmd.Flags().GetString("plot"); path != "" {
		if err := plotBreakdown(b, path); err != nil {
			return err
		}
		fmt.Fprintf(w, "plot written to %s\n", path)
	}

	if withMetrics, _ := cmd.Flags().GetBool("metrics"); withMetrics {
		results, err := metrics.Evaluate(loss.Layout(), pred, target)
		if err != nil {
			return err
		}
		fmt.Fprintln(w)
		renderMetrics(w, results)
	}
	return nil
}

func renderMetrics(w io.Writer, results []metrics.TargetMetric) {
	var data [][]string
	for _, m := range results {
		row := []string{m.Kind.String(), strconv.Itoa(m.Target), "-", "-", "-", "-"}
		if m.Kind == losses.KindRegression {
			row[2], row[3], row[4] = formatFloat(m.RMSE), formatFloat(m.MAE), formatFloat(m.R2)
		} else {
			row[5] = formatFloat(m.Accuracy)
		}
		data = append(data, row)
	}
	renderTable(w, []string{"KIND", "TARGET", "RMSE", "MAE", "R2", "ACCURACY"}, data)
}

func specDetail(cfg losses.Config, r losses.ColumnRange) string {
	switch r.Kind {
	case losses.KindBinary:
		return cfg.Binary[r.Position-len(cfg.Regression)].String()
	case losses.KindMulticlass:
		return cfg.Multiclass[r.Position-len(cfg.Regression)-len(cfg.Binary)].String()
	default:
		return strconv.Itoa(r.Target)
	}
}

func renderTable(w io.Writer, header []string, data [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
