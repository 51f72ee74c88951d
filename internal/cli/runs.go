package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeghVyas3132/REX/internal/engine"
)

// NewRunsCmd создаёт группу команд для runs на сервере.
func NewRunsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Manage runs on the API server",
	}

	cmd.AddCommand(
		newRunsListCmd(clientFn, outputFn),
		newRunsShowCmd(clientFn, outputFn),
		newRunsSubmitCmd(clientFn, outputFn),
	)

	return cmd
}

func newRunsListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ListRunsOpts

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			runs, err := clientFn().ListRuns(opts)
			if err != nil {
				return err
			}

			headers := []string{"ID", "WORKFLOW", "STATUS", "MODE", "DURATION", "CREATED"}
			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = []string{r.ID, orDash(r.WorkflowName), r.Status, orDash(r.Mode), formatDurationMs(r.DurationMs), r.CreatedAt}
			}

			out.Print(headers, rows, runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Workflow, "workflow", "", "Filter by workflow name")
	cmd.Flags().StringVar(&opts.Status, "status", "", "Filter by status (e.g. SUCCEEDED, FAILED)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Max results")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Offset")

	return cmd
}

func newRunsShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show run details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			run, err := clientFn().GetRun(args[0])
			if err != nil {
				return err
			}

			if out.IsJSON() {
				out.JSON(run)
				return nil
			}
			printRunDetails(out, run)
			return nil
		},
	}
}

func newRunsSubmitCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "submit FILE",
		Short: "Run a workflow file on the API server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			wf, err := engine.LoadWorkflowFile(args[0])
			if err != nil {
				return err
			}

			opts, err := flags.options(cmd)
			if err != nil {
				return err
			}

			req := CreateRunRequest{
				Workflow:     wf,
				Input:        opts.InitialInput,
				StartFrom:    opts.StartFrom,
				Retries:      opts.Retries,
				RetryDelayMs: int(opts.RetryDelay.Milliseconds()),
				TimeoutMs:    opts.Timeout.Milliseconds(),
				JoinMode:     string(opts.JoinMode),
			}

			run, err := clientFn().CreateRun(req)
			if err != nil {
				return err
			}

			if out.IsJSON() {
				out.JSON(run)
			} else {
				printRunDetails(out, run)
			}

			if run.Status == "FAILED" {
				return fmt.Errorf("%w: %s", ErrRunFailed, run.ID)
			}
			return nil
		},
	}

	flags.register(cmd)

	return cmd
}

// printRunDetails печатает поля run и таблицу результатов.
func printRunDetails(out *Output, run *RunResponse) {
	pairs := [][2]string{
		{"ID", run.ID},
		{"Workflow", orDash(run.WorkflowName)},
		{"Status", run.Status},
		{"Mode", orDash(run.Mode)},
		{"Duration", formatDurationMs(run.DurationMs)},
		{"Created", run.CreatedAt},
	}
	if len(run.FailedNodes) > 0 {
		pairs = append(pairs, [2]string{"Failed nodes", strings.Join(run.FailedNodes, ", ")})
	}
	if run.Error != "" {
		pairs = append(pairs, [2]string{"Error", run.Error})
	}
	out.KV(pairs)

	if len(run.Results) == 0 {
		return
	}

	ids := make([]string, 0, len(run.Results))
	for id := range run.Results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([][]string, len(ids))
	for i, id := range ids {
		rows[i] = []string{id, truncate(compactJSON(run.Results[id]), maxOutputWidth)}
	}
	out.Table([]string{"NODE", "OUTPUT"}, rows)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatDurationMs(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return strconv.FormatInt(ms, 10) + "ms"
}
