package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"claimflow/internal/bootstrap/logging"
	domain "claimflow/internal/domain/assessment"
	"claimflow/internal/errs"
	"claimflow/internal/ports"
	"claimflow/internal/usecase/assessment"
)

var assessmentCmd = &cobra.Command{
	Use:   "assessment",
	Short: "Drive assessments through their stages",
}

var assessmentLinkCmd = &cobra.Command{
	Use:   "link",
	Short: "Link an appointment, inspection or estimate to an assessment",
	RunE: withEngine(func(cmd *cobra.Command, eng *engine) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		actor, err := eng.actor(ctx)
		if err != nil {
			return err
		}

		assessmentID, _ := cmd.Flags().GetString("assessment")
		relation, _ := cmd.Flags().GetString("relation")
		relationID, _ := cmd.Flags().GetString("id")

		out, err := eng.service.LinkRelation(ctx, assessment.LinkRelationInput{
			AssessmentID: assessmentID,
			Relation:     relation,
			RelationID:   relationID,
			Actor:        actor,
		})
		if err != nil {
			logging.Error(ctx, "link relation failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "link relation")
		}
		return printAssessment(cmd.OutOrStdout(), out)
	}),
}

var assessmentTransitionCmd = &cobra.Command{
	Use:   "transition",
	Short: "Move an assessment to a target stage",
	RunE: withEngine(func(cmd *cobra.Command, eng *engine) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		actor, err := eng.actor(ctx)
		if err != nil {
			return err
		}

		assessmentID, _ := cmd.Flags().GetString("assessment")
		target, _ := cmd.Flags().GetString("to")

		out, err := eng.service.Transition(ctx, assessment.TransitionInput{
			AssessmentID: assessmentID,
			TargetStage:  target,
			Actor:        actor,
		})
		if err != nil {
			logging.Error(ctx, "transition failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "transition assessment")
		}
		return printAssessment(cmd.OutOrStdout(), out)
	}),
}

var assessmentCancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel a non-terminal assessment",
	RunE: withEngine(func(cmd *cobra.Command, eng *engine) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		actor, err := eng.actor(ctx)
		if err != nil {
			return err
		}

		assessmentID, _ := cmd.Flags().GetString("assessment")
		out, err := eng.service.Cancel(ctx, assessmentID, actor)
		if err != nil {
			logging.Error(ctx, "cancel failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "cancel assessment")
		}
		return printAssessment(cmd.OutOrStdout(), out)
	}),
}

var assessmentArtifactsCmd = &cobra.Command{
	Use:   "artifacts",
	Short: "Show artifacts of an assessment, provisioning missing ones with --ensure",
	RunE: withEngine(func(cmd *cobra.Command, eng *engine) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		actor, err := eng.actor(ctx)
		if err != nil {
			return err
		}

		assessmentID, _ := cmd.Flags().GetString("assessment")
		ensure, _ := cmd.Flags().GetBool("ensure")

		var set domain.ArtifactSet
		if ensure {
			set, err = eng.service.EnsureArtifacts(ctx, assessment.EnsureArtifactsInput{AssessmentID: assessmentID, Actor: actor})
		} else {
			set, err = eng.service.Artifacts(ctx, assessmentID, actor)
		}
		if err != nil {
			logging.Error(ctx, "artifacts failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "assessment artifacts")
		}
		return printArtifacts(cmd.OutOrStdout(), set)
	}),
}

var assessmentShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show one assessment",
	RunE: withEngine(func(cmd *cobra.Command, eng *engine) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		actor, err := eng.actor(ctx)
		if err != nil {
			return err
		}

		assessmentID, _ := cmd.Flags().GetString("assessment")
		out, err := eng.service.GetAssessment(ctx, assessmentID, actor)
		if err != nil {
			return errs.Wrap(err, "show assessment")
		}
		return printAssessment(cmd.OutOrStdout(), out)
	}),
}

var assessmentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List visible assessments, optionally by stage",
	RunE: withEngine(func(cmd *cobra.Command, eng *engine) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		actor, err := eng.actor(ctx)
		if err != nil {
			return err
		}

		stages, _ := cmd.Flags().GetStringSlice("stage")
		rows, err := eng.service.ListByStage(ctx, assessment.ListByStageInput{Stages: stages, Actor: actor})
		if err != nil {
			return errs.Wrap(err, "list assessments")
		}

		out := cmd.OutOrStdout()
		if len(rows) == 0 {
			_, err := fmt.Fprintln(out, "no assessments")
			return err
		}
		for _, row := range rows {
			if _, err := fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%s\tengineer=%s\n",
				row.AssessmentID, row.Number, row.Stage, row.RequestNumber, row.VehicleRegistration,
				derefOr(row.AppointmentEngineerID, derefOr(row.PendingEngineerID, "-")),
			); err != nil {
				return errs.Wrap(err, "write list output")
			}
		}
		return nil
	}),
}

var assessmentCountsCmd = &cobra.Command{
	Use:   "counts",
	Short: "Count visible assessments per stage",
	RunE: withEngine(func(cmd *cobra.Command, eng *engine) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		actor, err := eng.actor(ctx)
		if err != nil {
			return err
		}

		counts, err := eng.service.StageCounts(ctx, actor)
		if err != nil {
			return errs.Wrap(err, "stage counts")
		}
		for _, c := range counts {
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%-24s %d\n", c.Stage, c.Count); err != nil {
				return errs.Wrap(err, "write counts output")
			}
		}
		return nil
	}),
}

var assessmentHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the history of an assessment or of one entity",
	RunE: withEngine(func(cmd *cobra.Command, eng *engine) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		actor, err := eng.actor(ctx)
		if err != nil {
			return err
		}

		assessmentID, _ := cmd.Flags().GetString("assessment")
		rawType, _ := cmd.Flags().GetString("entity-type")
		entityID, _ := cmd.Flags().GetString("entity-id")
		out := cmd.OutOrStdout()

		if strings.TrimSpace(rawType) == "" {
			var after uint64
			for {
				page, err := eng.service.AssessmentHistory(ctx, actor, assessmentID, after, 100)
				if err != nil {
					return errs.Wrap(err, "assessment history")
				}
				for _, entry := range page.Entries {
					if err := printHistoryEntry(out, entry); err != nil {
						return err
					}
				}
				if page.NextAfterID == 0 {
					return nil
				}
				after = page.NextAfterID
			}
		}

		entityType, err := domain.ParseEntityType(rawType)
		if err != nil {
			return err
		}
		for entry, err := range eng.service.History(ctx, actor, entityType, entityID, 100) {
			if err != nil {
				return errs.Wrap(err, "entity history")
			}
			if err := printHistoryEntry(out, entry); err != nil {
				return err
			}
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(assessmentCmd)
	for _, c := range []*cobra.Command{
		assessmentLinkCmd,
		assessmentTransitionCmd,
		assessmentCancelCmd,
		assessmentArtifactsCmd,
		assessmentShowCmd,
		assessmentHistoryCmd,
	} {
		assessmentCmd.AddCommand(c)
		c.Flags().String("assessment", "", "Assessment id")
	}
	assessmentCmd.AddCommand(assessmentListCmd)
	assessmentCmd.AddCommand(assessmentCountsCmd)

	for _, c := range []*cobra.Command{
		assessmentLinkCmd,
		assessmentTransitionCmd,
		assessmentCancelCmd,
		assessmentArtifactsCmd,
		assessmentShowCmd,
	} {
		_ = c.MarkFlagRequired("assessment")
	}

	assessmentLinkCmd.Flags().String("relation", "", "Relation name (appointment|inspection|estimate)")
	assessmentLinkCmd.Flags().String("id", "", "Id of the related row")
	_ = assessmentLinkCmd.MarkFlagRequired("relation")
	_ = assessmentLinkCmd.MarkFlagRequired("id")

	assessmentTransitionCmd.Flags().String("to", "", "Target stage")
	_ = assessmentTransitionCmd.MarkFlagRequired("to")

	assessmentArtifactsCmd.Flags().Bool("ensure", false, "Provision missing artifacts")

	assessmentListCmd.Flags().StringSlice("stage", nil, "Stage filter (repeatable); empty lists every stage")

	assessmentHistoryCmd.Flags().String("entity-type", "", "Entity type; when set, --entity-id selects the entity")
	assessmentHistoryCmd.Flags().String("entity-id", "", "Entity id")
	assessmentHistoryCmd.MarkFlagsOneRequired("assessment", "entity-type")
	assessmentHistoryCmd.MarkFlagsRequiredTogether("entity-type", "entity-id")
}

func printAssessment(w io.Writer, a ports.Assessment) error {
	_, err := fmt.Fprintf(w,
		"assessment %s (%s)\nrequest: %s\nstage: %s\nstatus: %s\nappointment: %s\ninspection: %s\nestimate: %s\nupdated: %s\n",
		a.Number, a.AssessmentID, a.RequestID, a.Stage, a.Status,
		derefOr(a.AppointmentID, "-"), derefOr(a.InspectionID, "-"), derefOr(a.EstimateID, "-"),
		a.UpdatedAt,
	)
	if err != nil {
		return errs.Wrap(err, "write assessment output")
	}
	return nil
}

func printArtifacts(w io.Writer, set domain.ArtifactSet) error {
	lines := []string{
		fmt.Sprintf("complete: %t", set.Complete()),
		"vehicle_values: " + orDash(set.VehicleValuesID),
		"damage: " + orDash(set.DamageID),
		"estimate: " + orDash(set.EstimateID),
		"pre_incident_estimate: " + orDash(set.PreIncidentEstimateID),
	}
	for _, p := range domain.TyrePositions() {
		lines = append(lines, fmt.Sprintf("tyre %s: %s", p, orDash(set.TyreIDs[p])))
	}
	for _, c := range domain.PhotoCategories() {
		lines = append(lines, fmt.Sprintf("photo_album %s: %s", c, orDash(set.PhotoAlbumIDs[c])))
	}
	if _, err := fmt.Fprintln(w, strings.Join(lines, "\n")); err != nil {
		return errs.Wrap(err, "write artifacts output")
	}
	return nil
}

func printHistoryEntry(w io.Writer, e ports.HistoryEntry) error {
	change := ""
	if e.FieldName != nil {
		change = fmt.Sprintf(" %s: %s -> %s", *e.FieldName, derefOr(e.OldValue, "∅"), derefOr(e.NewValue, "∅"))
	}
	meta := ""
	if len(e.Metadata) > 0 {
		keys := make([]string, 0, len(e.Metadata))
		for k := range e.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, e.Metadata[k]))
		}
		meta = " {" + strings.Join(parts, " ") + "}"
	}
	if _, err := fmt.Fprintf(w, "#%d %s %s %s/%s by %s%s%s\n", e.EntryID, e.CreatedAt, e.Action, e.EntityType, e.EntityID, e.ActorID, change, meta); err != nil {
		return errs.Wrap(err, "write history output")
	}
	return nil
}

func parseTimeFlag(cmd *cobra.Command, name string) (time.Time, error) {
	raw, _ := cmd.Flags().GetString(name)
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, errs.Wrapf(err, "parse --%s", name)
	}
	return t, nil
}

func derefOr(s *string, fallback string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return fallback
	}
	return *s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
