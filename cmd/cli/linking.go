package main

import (
	"github.com/myrjola/caselink/internal/errors"
	"github.com/myrjola/caselink/internal/linking"
	"github.com/myrjola/caselink/internal/models"
	"github.com/spf13/cobra"
	"log/slog"
)

var linkingGroup = &cobra.Group{
	ID:    "linking",
	Title: "Case linking",
}

var (
	errRelationshipNotCreated = errors.NewSentinel("relationship not created")
	errRelationshipNotFound   = errors.NewSentinel("relationship not found")
)

func newSimilarCmd(app *application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "similar [case]",
		GroupID: linkingGroup.ID,
		Short:   "Find cases similar to a case",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, err := cmd.Flags().GetInt("limit")
			if err != nil {
				return errors.Wrap(err, "invalid limit flag")
			}
			excludeLinked, err := cmd.Flags().GetBool("exclude-linked")
			if err != nil {
				return errors.Wrap(err, "invalid exclude-linked flag")
			}
			if err = app.open(cmd.Context()); err != nil {
				return err
			}
			results := app.linking.FindSimilar(cmd.Context(), args[0], limit, excludeLinked)
			if results == nil {
				results = []linking.SimilarityResult{}
			}
			return app.printJSON(results)
		},
	}
	cmd.Flags().Int("limit", linking.DefaultLimit, "maximum number of similar cases")
	cmd.Flags().Bool("exclude-linked", false, "skip cases already linked to the case")
	return cmd
}

func newAutoLinkCmd(app *application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "autolink [case]",
		GroupID: linkingGroup.ID,
		Short:   "Link a case to its most similar cases",
		Long:    `Creates relationships to every unlinked case whose similarity reaches the threshold.`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			threshold, err := cmd.Flags().GetFloat64("threshold")
			if err != nil {
				return errors.Wrap(err, "invalid threshold flag")
			}
			if !cmd.Flags().Changed("threshold") {
				threshold = app.cfg.AutoLinkThreshold
			}
			if err = app.open(cmd.Context()); err != nil {
				return err
			}
			rels := app.linking.AutoLink(cmd.Context(), args[0], threshold)
			if rels == nil {
				rels = []models.CaseRelationship{}
			}
			return app.printJSON(rels)
		},
	}
	cmd.Flags().Float64("threshold", linking.DefaultAutoLinkThreshold, "minimum similarity score to link")
	return cmd
}

func newLinkCmd(app *application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "link [case] [case]",
		GroupID: linkingGroup.ID,
		Short:   "Link two cases",
		Args:    cobra.ExactArgs(2), //nolint:mnd // two cases
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			relType, err := flags.GetString("type")
			if err != nil {
				return errors.Wrap(err, "invalid type flag")
			}
			reason, err := flags.GetString("reason")
			if err != nil {
				return errors.Wrap(err, "invalid reason flag")
			}
			confidence, err := flags.GetFloat64("confidence")
			if err != nil {
				return errors.Wrap(err, "invalid confidence flag")
			}
			notes, err := flags.GetString("notes")
			if err != nil {
				return errors.Wrap(err, "invalid notes flag")
			}
			createdBy, err := flags.GetString("by")
			if err != nil {
				return errors.Wrap(err, "invalid by flag")
			}
			if err = app.open(cmd.Context()); err != nil {
				return err
			}
			rel := app.linking.CreateRelationship(cmd.Context(), linking.RelationshipParams{
				CaseAID:    args[0],
				CaseBID:    args[1],
				Type:       models.RelationshipType(relType),
				Reason:     models.LinkReason(reason),
				Notes:      notes,
				Confidence: confidence,
				CreatedBy:  createdBy,
			})
			if rel == nil {
				return errors.Wrap(errRelationshipNotCreated, "link cases",
					slog.String("case_a_id", args[0]), slog.String("case_b_id", args[1]))
			}
			return app.printJSON(rel)
		},
	}
	cmd.Flags().String("type", string(models.RelationshipTypeRelated), "related, serial or same_incident")
	cmd.Flags().String("reason", string(models.LinkReasonManual),
		"semantic, location, mo, time_proximity or manual")
	cmd.Flags().Float64("confidence", 1, "confidence between 0 and 1")
	cmd.Flags().String("notes", "", "free-form notes")
	cmd.Flags().String("by", "cli", "who creates the relationship")
	return cmd
}

func newUnlinkCmd(app *application) *cobra.Command {
	return &cobra.Command{
		Use:     "unlink [relationship]",
		GroupID: linkingGroup.ID,
		Short:   "Delete a relationship",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.open(cmd.Context()); err != nil {
				return err
			}
			if !app.linking.DeleteRelationship(cmd.Context(), args[0]) {
				return errors.Wrap(errRelationshipNotFound, "unlink", slog.String("relationship_id", args[0]))
			}
			return app.printJSON(map[string]any{"deleted": args[0]})
		},
	}
}

func newRelationshipsCmd(app *application) *cobra.Command {
	return &cobra.Command{
		Use:     "relationships [case]",
		GroupID: linkingGroup.ID,
		Short:   "List the relationships of a case",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.open(cmd.Context()); err != nil {
				return err
			}
			rels := app.linking.Relationships(cmd.Context(), args[0])
			if rels == nil {
				rels = []models.CaseRelationship{}
			}
			return app.printJSON(rels)
		},
	}
}
