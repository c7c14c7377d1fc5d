package main

import (
	"github.com/spf13/cobra"

	"github.com/behemotion/docbro/internal/wizard"
)

var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Drive a setup wizard session",
}

func init() {
	start := &cobra.Command{
		Use:   "start <kind> <target>",
		Short: "Start a wizard session (kind is shelf, box, or mcp)",
		Args:  cobra.ExactArgs(2),
		RunE:  runWizardStart,
	}
	step := &cobra.Command{
		Use:   "step <session-id> <value>",
		Short: "Submit the next step's value",
		Args:  cobra.ExactArgs(2),
		RunE:  runWizardStep,
	}
	status := &cobra.Command{
		Use:   "status <session-id>",
		Short: "Show a wizard session's current state",
		Args:  cobra.ExactArgs(1),
		RunE:  runWizardStatus,
	}
	cancel := &cobra.Command{
		Use:   "cancel <session-id>",
		Short: "Cancel a wizard session",
		Args:  cobra.ExactArgs(1),
		RunE:  runWizardCancel,
	}
	wizardCmd.AddCommand(start, step, status, cancel)
}

func runWizardStart(cmd *cobra.Command, args []string) error {
	st, err := application.Wizard.Start(cmd.Context(), wizard.Kind(args[0]), args[1])
	if err != nil {
		return err
	}
	printWizardStatus(cmd, st)
	return nil
}

func runWizardStep(cmd *cobra.Command, args []string) error {
	st, err := application.Wizard.SubmitStep(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	printWizardStatus(cmd, st)
	return nil
}

func runWizardStatus(cmd *cobra.Command, args []string) error {
	st, err := application.Wizard.Status(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	printWizardStatus(cmd, st)
	return nil
}

func runWizardCancel(cmd *cobra.Command, args []string) error {
	if err := application.Wizard.Cancel(cmd.Context(), args[0]); err != nil {
		return err
	}
	cmd.Printf("cancelled wizard session %s\n", args[0])
	return nil
}

func printWizardStatus(cmd *cobra.Command, st wizard.Status) {
	if st.Completed {
		cmd.Printf("session %s: completed\n", st.ID)
		return
	}
	cmd.Printf("session %s: step %d/%d, next=%q\n", st.ID, st.CurrentStep, st.TotalSteps, st.NextKey)
}
