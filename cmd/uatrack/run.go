package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/uspace/uatrack/pkg/model"
	"github.com/uspace/uatrack/pkg/store/gormstore"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Inspect campaign runs",
	}
	cmd.AddCommand(runSummaryCmd())
	return cmd
}

func runSummaryCmd() *cobra.Command {
	var showSteps bool

	cmd := &cobra.Command{
		Use:   "summary [campaign-run-id]",
		Short: "Show pass/fail/pending counts of a campaign run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid campaign run id %q", args[0])
			}

			e, err := bootstrap()
			if err != nil {
				return err
			}
			defer e.close()

			var (
				summary *model.RunSummary
				tree    *model.CampaignRun
			)
			err = e.store.Do(cmd.Context(), func(uow *gormstore.UnitOfWork) error {
				var err error
				if summary, err = uow.CampaignRuns.Summary(cmd.Context(), id); err != nil {
					return err
				}
				if showSteps {
					tree, err = uow.CampaignRuns.GetWithTree(cmd.Context(), id)
				}
				return err
			})
			if err != nil {
				return err
			}

			printSummary(os.Stdout, summary)
			if tree != nil {
				fmt.Println()
				printTree(os.Stdout, tree)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showSteps, "steps", false, "list every step result")
	return cmd
}

func printSummary(w io.Writer, s *model.RunSummary) {
	fmt.Fprintf(w, "Campaign run %s [%s]\n", s.CampaignRunID, statusLabel(s.Status))
	fmt.Fprintf(w, "  started: %s\n", s.StartedAt.Format(time.RFC3339))
	if s.EndedAt != nil {
		fmt.Fprintf(w, "  ended:   %s\n", s.EndedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "  cases:   %d\n", s.CaseRuns)
	fmt.Fprintf(w, "  steps:   %d (%s passed, %s failed, %s pending)\n",
		s.StepRuns,
		color.New(color.FgGreen).Sprint(s.Passed),
		color.New(color.FgRed).Sprint(s.Failed),
		color.New(color.FgYellow).Sprint(s.Pending),
	)
}

func printTree(w io.Writer, run *model.CampaignRun) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CASE\tSTEP\tRESULT\tACTION")
	for _, caseRun := range run.CaseRuns {
		code := caseRun.CaseID.String()
		if caseRun.Case != nil {
			code = caseRun.Case.Code
		}
		for _, stepRun := range caseRun.StepRuns {
			var position int
			var action string
			if stepRun.Step != nil {
				position, action = stepRun.Step.Position, stepRun.Step.Action
			}
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", code, position, resultLabel(stepRun.Passed), action)
		}
	}
	_ = tw.Flush()
}

func statusLabel(status model.CampaignStatus) string {
	switch status {
	case model.CampaignRunning:
		return color.New(color.FgBlue).Sprint(status)
	case model.CampaignFinished:
		return color.New(color.FgGreen).Sprint(status)
	case model.CampaignCancelled:
		return color.New(color.FgRed).Sprint(status)
	default:
		return string(status)
	}
}

func resultLabel(passed *bool) string {
	switch {
	case passed == nil:
		return color.New(color.FgYellow).Sprint("PENDING")
	case *passed:
		return color.New(color.FgGreen).Sprint("PASS")
	default:
		return color.New(color.FgRed).Sprint("FAIL")
	}
}
