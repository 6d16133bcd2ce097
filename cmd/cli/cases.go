package main

import (
	"encoding/json"
	"github.com/myrjola/caselink/internal/errors"
	"github.com/myrjola/caselink/internal/models"
	"github.com/spf13/cobra"
	"log/slog"
	"os"
	"time"
)

var casesGroup = &cobra.Group{
	ID:    "cases",
	Title: "Case operations",
}

// importRecord is a case in an import file with the names of the witnesses who reported on it.
type importRecord struct {
	models.Case
	WitnessReports []string `json:"witness_reports,omitempty"`
}

func newCasesCmd(app *application) *cobra.Command {
	casesCmd := &cobra.Command{
		Use:     "cases",
		GroupID: casesGroup.ID,
		Short:   "Import and rank cases",
	}

	importCmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import cases",
		Long:  `Upserts the cases of a JSON array file. Witness reports listed with a case are added to it.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "read import file")
			}
			var records []importRecord
			if err = json.Unmarshal(data, &records); err != nil {
				return errors.Wrap(err, "decode import file", slog.String("file", args[0]))
			}
			if err = app.open(cmd.Context()); err != nil {
				return err
			}
			now := time.Now().UTC()
			imported := make([]string, 0, len(records))
			for _, record := range records {
				c := record.Case
				if c.ID == "" || c.CaseNumber == "" || c.Title == "" {
					return errors.New("case needs id, case_number and title", slog.String("case_id", c.ID))
				}
				if c.CreatedAt.IsZero() {
					c.CreatedAt = now
				}
				if c.UpdatedAt.IsZero() {
					c.UpdatedAt = c.CreatedAt
				}
				if err = app.cases.UpsertCase(cmd.Context(), c); err != nil {
					return err
				}
				for _, witness := range record.WitnessReports {
					if err = app.cases.AddReport(cmd.Context(), c.ID, witness, now); err != nil {
						return err
					}
				}
				imported = append(imported, c.ID)
			}
			return app.printJSON(map[string]any{"imported": imported})
		},
	}

	rankCmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank cases by priority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, err := cmd.Flags().GetInt("limit")
			if err != nil {
				return errors.Wrap(err, "invalid limit flag")
			}
			if err = app.open(cmd.Context()); err != nil {
				return err
			}
			cases, err := app.cases.ListCases(cmd.Context(), 0)
			if err != nil {
				return err
			}
			counts, err := app.cases.ReportCounts(cmd.Context())
			if err != nil {
				return err
			}
			scores := app.priority.Rank(cases, counts)
			if limit > 0 && len(scores) > limit {
				scores = scores[:limit]
			}
			return app.printJSON(scores)
		},
	}
	rankCmd.Flags().Int("limit", 0, "maximum number of cases to print, 0 prints all")

	casesCmd.AddCommand(importCmd, rankCmd)
	return casesCmd
}

func newPriorityCmd(app *application) *cobra.Command {
	return &cobra.Command{
		Use:     "priority [case]",
		GroupID: casesGroup.ID,
		Short:   "Score case priority",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.requireCase(cmd, args[0])
			if err != nil {
				return err
			}
			count, err := app.cases.CountReports(cmd.Context(), c.ID)
			if err != nil {
				return err
			}
			return app.printJSON(app.priority.Calculate(*c, count))
		},
	}
}

func newReportCmd(app *application) *cobra.Command {
	return &cobra.Command{
		Use:     "report [case] [witness]",
		GroupID: casesGroup.ID,
		Short:   "Add a witness report to a case",
		Args:    cobra.ExactArgs(2), //nolint:mnd // case and witness
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.requireCase(cmd, args[0])
			if err != nil {
				return err
			}
			if err = app.cases.AddReport(cmd.Context(), c.ID, args[1], time.Now()); err != nil {
				return err
			}
			count, err := app.cases.CountReports(cmd.Context(), c.ID)
			if err != nil {
				return err
			}
			return app.printJSON(map[string]any{"case_id": c.ID, "report_count": count})
		},
	}
}

var errCaseNotFound = errors.NewSentinel("case not found")

// requireCase opens the database and reads the case, failing when it does not exist.
func (app *application) requireCase(cmd *cobra.Command, id string) (*models.Case, error) {
	if err := app.open(cmd.Context()); err != nil {
		return nil, err
	}
	c, err := app.cases.GetCase(cmd.Context(), id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errors.Wrap(errCaseNotFound, "get case", slog.String("case_id", id))
	}
	return c, nil
}
