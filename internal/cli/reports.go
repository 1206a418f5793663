package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/biomed-dq-validator/internal/archive"
	"github.com/biomed-dq-validator/internal/config"
	"github.com/biomed-dq-validator/internal/domain"
	"github.com/biomed-dq-validator/internal/report"
)

// openArchive opens the configured report archive. A disabled archive is an
// error for every command that needs one.
func (a *app) openArchive(ctx context.Context) (archive.Store, error) {
	store, err := archive.Open(ctx, a.cfg.Archive, a.logger)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("report archive is disabled (archive.driver=%s)", a.cfg.Archive.Driver)
	}
	return store, nil
}

// withArchive runs fn against an open archive and closes it afterwards.
func (a *app) withArchive(cmd *cobra.Command, fn func(store archive.Store) error) error {
	store, err := a.openArchive(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func registerReportsCmd(parent *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Manage archived validation reports",
	}

	registerReportsListCmd(cmd, a)
	registerReportsShowCmd(cmd, a)
	registerReportsDeleteCmd(cmd, a)
	registerReportsExportCmd(cmd, a)
	registerReportsImportCmd(cmd, a)

	parent.AddCommand(cmd)
}

func registerReportsListCmd(parent *cobra.Command, a *app) {
	var limit, offset int
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived reports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withArchive(cmd, func(store archive.Store) error {
				summaries, err := store.List(cmd.Context(), limit, offset)
				if err != nil {
					return err
				}
				if format == "json" {
					return report.WriteJSON(cmd.OutOrStdout(), summaries)
				}
				return writeSummaries(cmd, summaries)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of reports")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of reports to skip")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text or json")

	parent.AddCommand(cmd)
}

func writeSummaries(cmd *cobra.Command, summaries []*archive.ReportSummary) error {
	if len(summaries) == 0 {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "No archived reports.")
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tDATASET\tMODE\tSCORE\tGRADE\tSTATUS\tREADY\tCREATED")
	for _, s := range summaries {
		name := s.DatasetName
		if name == "" {
			name = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\t%s\t%t\t%s\n",
			s.ID, name, s.Mode, s.Score, s.Grade, s.Status, s.ReadyForML, s.CreatedAt.Local().Format(time.DateTime))
	}
	return w.Flush()
}

func registerReportsShowCmd(parent *cobra.Command, a *app) {
	var format string

	cmd := &cobra.Command{
		Use:   "show <report-id>",
		Short: "Render an archived report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			return a.withArchive(cmd, func(store archive.Store) error {
				r, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return report.Render(cmd.OutOrStdout(), r, f)
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "report format: text, json, html or markdown")

	parent.AddCommand(cmd)
}

func registerReportsDeleteCmd(parent *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:   "delete <report-id>",
		Short: "Delete an archived report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withArchive(cmd, func(store archive.Store) error {
				if err := store.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Deleted report %s\n", args[0])
				return err
			})
		},
	}

	parent.AddCommand(cmd)
}

func registerReportsExportCmd(parent *cobra.Command, a *app) {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every archived report as one JSON document",
		Long: `Export every archived report as one JSON document. Without --output the
file is written to the exports directory under the data directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := output
			if path == "" {
				if err := config.EnsureDataDir(); err != nil {
					return fmt.Errorf("creating data directory: %w", err)
				}
				path = filepath.Join(config.ExportDir(), "reports-"+time.Now().UTC().Format("20060102-150405")+".json")
			}

			return a.withArchive(cmd, func(store archive.Store) error {
				w, closeOutput, err := openOutput(cmd, path)
				if err != nil {
					return err
				}
				if err := store.ExportJSON(cmd.Context(), w); err != nil {
					closeOutput()
					return err
				}
				if err := closeOutput(); err != nil {
					return err
				}
				if path != "-" {
					fmt.Fprintf(cmd.ErrOrStderr(), "Exported reports to %s\n", path)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "export destination, - for stdout")

	parent.AddCommand(cmd)
}

func registerReportsImportCmd(parent *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:   "import <export.json>",
		Short: "Import a report export, skipping reports already archived",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening export: %w", err)
			}
			defer f.Close()

			return a.withArchive(cmd, func(store archive.Store) error {
				imported, skipped, err := store.ImportJSON(cmd.Context(), f)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d reports, skipped %d\n", imported, skipped)
				return err
			})
		},
	}

	parent.AddCommand(cmd)
}

// archiveReport saves a report produced by validate --archive.
func (a *app) archiveReport(cmd *cobra.Command, r *domain.ValidationReport) error {
	return a.withArchive(cmd, func(store archive.Store) error {
		if err := store.Save(cmd.Context(), r); err != nil {
			return fmt.Errorf("archiving report: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Archived report %s\n", r.Metadata.ReportID)
		return nil
	})
}
