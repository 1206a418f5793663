package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/biomed-dq-validator/internal/domain"
	"github.com/biomed-dq-validator/internal/report"
)

type quickOptions struct {
	dataset datasetFlags
	format  string
}

func registerQuickCmd(parent *cobra.Command, a *app) {
	opts := &quickOptions{}

	cmd := &cobra.Command{
		Use:   "quick <dataset.json>",
		Short: "Pre-screen a dataset for PHI, completeness and exact duplicates",
		Long: `Run the quick pre-screen: PHI detection, overall completeness and exact
duplicate rows. The command exits non-zero when the pre-screen fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runQuick(cmd, args[0], opts)
		},
	}

	opts.dataset.register(cmd)
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "output format: text or json")

	parent.AddCommand(cmd)
}

func (a *app) runQuick(cmd *cobra.Command, path string, opts *quickOptions) error {
	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	if format != report.FORMAT_TEXT && format != report.FORMAT_JSON {
		return domain.NewValidationError("format", "quick output must be text or json", opts.format)
	}

	req, err := opts.dataset.readDataset(path, cmd.InOrStdin())
	if err != nil {
		return err
	}
	table, err := req.Table()
	if err != nil {
		return err
	}

	result, err := a.engine.QuickValidate(cmd.Context(), table, req.DatasetName)
	if err != nil {
		return err
	}

	if format == report.FORMAT_JSON {
		err = report.WriteJSON(cmd.OutOrStdout(), result)
	} else {
		_, err = fmt.Fprint(cmd.OutOrStdout(), report.QuickSummary(result))
	}
	if err != nil {
		return err
	}

	if !result.Passed {
		return fmt.Errorf("quick validation failed with %d issue(s)", len(result.Issues))
	}
	return nil
}
