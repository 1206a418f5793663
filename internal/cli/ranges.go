package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/biomed-dq-validator/internal/domain"
	"github.com/biomed-dq-validator/internal/report"
)

type rangesOptions struct {
	category string
	format   string
}

func registerRangesCmd(parent *cobra.Command, a *app) {
	opts := &rangesOptions{}

	cmd := &cobra.Command{
		Use:   "ranges",
		Short: "List the clinical range specifications",
		Long: `List the clinical range specifications used by the range validator: the
built-in specs plus any loaded from validation.range_specs_file.`,
		Example: `  dqvalidate ranges --category csf_biomarker`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRanges(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.category, "category", "", "only list specs in this category")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "output format: text or json")

	parent.AddCommand(cmd)
}

func (a *app) runRanges(cmd *cobra.Command, opts *rangesOptions) error {
	specs := make([]domain.RangeSpec, 0)
	for _, spec := range a.engine.Ranges().Registry().Specs() {
		if opts.category == "" || strings.EqualFold(spec.Category, opts.category) {
			specs = append(specs, spec)
		}
	}

	switch opts.format {
	case "json":
		return report.WriteJSON(cmd.OutOrStdout(), specs)
	case "", "text":
	default:
		return domain.NewValidationError("format", "ranges output must be text or json", opts.format)
	}

	if len(specs) == 0 {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "No range specs match.")
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FIELD\tMIN\tMAX\tUNIT\tCATEGORY\tALIASES")
	for _, spec := range specs {
		aliases := "-"
		if len(spec.Aliases) > 0 {
			aliases = strings.Join(spec.Aliases, ", ")
		}
		_, _ = fmt.Fprintf(w, "%s\t%g\t%g\t%s\t%s\t%s\n",
			spec.FieldName, spec.Min, spec.Max, spec.Unit, spec.Category, aliases)
	}
	return w.Flush()
}
