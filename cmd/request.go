package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"claimflow/internal/bootstrap/logging"
	"claimflow/internal/errs"
	"claimflow/internal/usecase/assessment"
)

var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Intake of assessment requests",
}

var requestCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a request and its assessment",
	RunE: withEngine(func(cmd *cobra.Command, eng *engine) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		actor, err := eng.actor(ctx)
		if err != nil {
			return err
		}

		owner, _ := cmd.Flags().GetString("owner")
		vehicleMake, _ := cmd.Flags().GetString("make")
		vehicleModel, _ := cmd.Flags().GetString("model")
		registration, _ := cmd.Flags().GetString("registration")
		engineerID, _ := cmd.Flags().GetString("engineer")

		out, err := eng.service.CreateRequest(ctx, assessment.CreateRequestInput{
			OwnerName:           owner,
			VehicleMake:         vehicleMake,
			VehicleModel:        vehicleModel,
			VehicleRegistration: registration,
			PendingEngineerID:   engineerID,
			Actor:               actor,
		})
		if err != nil {
			logging.Error(ctx, "create request failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "create request")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "created request %s (%s)\nassessment %s (%s) stage=%s\n",
			out.Request.Number, out.Request.RequestID,
			out.Assessment.Number, out.Assessment.AssessmentID, out.Assessment.Stage,
		); err != nil {
			return errs.Wrap(err, "write create output")
		}
		return nil
	}),
}

var requestAssignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Set the pending engineer of a request",
	RunE: withEngine(func(cmd *cobra.Command, eng *engine) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		actor, err := eng.actor(ctx)
		if err != nil {
			return err
		}

		requestID, _ := cmd.Flags().GetString("request")
		engineerID, _ := cmd.Flags().GetString("engineer")

		out, err := eng.service.AssignEngineer(ctx, assessment.AssignEngineerInput{
			RequestID:  requestID,
			EngineerID: engineerID,
			Actor:      actor,
		})
		if err != nil {
			logging.Error(ctx, "assign engineer failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "assign engineer")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "request %s pending engineer=%s\n", out.Number, derefOr(out.PendingEngineerID, "-")); err != nil {
			return errs.Wrap(err, "write assign output")
		}
		return nil
	}),
}

var appointmentCmd = &cobra.Command{
	Use:   "appointment",
	Short: "Inspection appointments",
}

var appointmentCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Schedule an appointment for an assessment",
	RunE: withEngine(func(cmd *cobra.Command, eng *engine) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		actor, err := eng.actor(ctx)
		if err != nil {
			return err
		}

		assessmentID, _ := cmd.Flags().GetString("assessment")
		engineerID, _ := cmd.Flags().GetString("engineer")
		at, err := parseTimeFlag(cmd, "at")
		if err != nil {
			return err
		}

		out, err := eng.service.ScheduleAppointment(ctx, assessment.ScheduleAppointmentInput{
			AssessmentID: assessmentID,
			EngineerID:   engineerID,
			ScheduledFor: at,
			Actor:        actor,
		})
		if err != nil {
			logging.Error(ctx, "schedule appointment failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "schedule appointment")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "created appointment %s engineer=%s at=%s\n", out.AppointmentID, out.EngineerID, out.ScheduledFor); err != nil {
			return errs.Wrap(err, "write appointment output")
		}
		return nil
	}),
}

var inspectionCmd = &cobra.Command{
	Use:   "inspection",
	Short: "Vehicle inspections",
}

var inspectionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Record an inspection against the linked appointment",
	RunE: withEngine(func(cmd *cobra.Command, eng *engine) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		actor, err := eng.actor(ctx)
		if err != nil {
			return err
		}

		assessmentID, _ := cmd.Flags().GetString("assessment")
		out, err := eng.service.CreateInspection(ctx, assessment.CreateInspectionInput{
			AssessmentID: assessmentID,
			Actor:        actor,
		})
		if err != nil {
			logging.Error(ctx, "create inspection failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "create inspection")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "created inspection %s appointment=%s\n", out.InspectionID, out.AppointmentID); err != nil {
			return errs.Wrap(err, "write inspection output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(requestCmd)
	requestCmd.AddCommand(requestCreateCmd)
	requestCmd.AddCommand(requestAssignCmd)
	rootCmd.AddCommand(appointmentCmd)
	appointmentCmd.AddCommand(appointmentCreateCmd)
	rootCmd.AddCommand(inspectionCmd)
	inspectionCmd.AddCommand(inspectionCreateCmd)

	requestCreateCmd.Flags().String("owner", "", "Vehicle owner name")
	requestCreateCmd.Flags().String("make", "", "Vehicle make")
	requestCreateCmd.Flags().String("model", "", "Vehicle model")
	requestCreateCmd.Flags().String("registration", "", "Vehicle registration")
	requestCreateCmd.Flags().String("engineer", "", "Optional pending engineer id")
	_ = requestCreateCmd.MarkFlagRequired("owner")
	_ = requestCreateCmd.MarkFlagRequired("registration")

	requestAssignCmd.Flags().String("request", "", "Request id")
	requestAssignCmd.Flags().String("engineer", "", "Engineer id")
	_ = requestAssignCmd.MarkFlagRequired("request")
	_ = requestAssignCmd.MarkFlagRequired("engineer")

	appointmentCreateCmd.Flags().String("assessment", "", "Assessment id")
	appointmentCreateCmd.Flags().String("engineer", "", "Engineer id")
	appointmentCreateCmd.Flags().String("at", "", "Scheduled time (RFC3339)")
	_ = appointmentCreateCmd.MarkFlagRequired("assessment")
	_ = appointmentCreateCmd.MarkFlagRequired("engineer")
	_ = appointmentCreateCmd.MarkFlagRequired("at")

	inspectionCreateCmd.Flags().String("assessment", "", "Assessment id")
	_ = inspectionCreateCmd.MarkFlagRequired("assessment")
}
