package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeghVyas3132/REX/internal/domain"
	"github.com/MeghVyas3132/REX/internal/engine"
	"github.com/MeghVyas3132/REX/internal/orchestrator"
)

// ErrRunFailed — run завершился в статусе FAILED.
var ErrRunFailed = errors.New("run failed")

// maxOutputWidth — ширина колонки OUTPUT в таблице.
const maxOutputWidth = 60

// runFlags — флаги запуска, общие для `run` и `runs submit`.
type runFlags struct {
	input      string
	inputFile  string
	sets       []string
	startFrom  []string
	retries    int
	retryDelay time.Duration
	timeout    time.Duration
	joinMode   string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.input, "input", "", "Initial input as JSON or YAML")
	cmd.Flags().StringVar(&f.inputFile, "input-file", "", "Read initial input from file")
	cmd.Flags().StringSliceVar(&f.sets, "set", nil, "Input field as KEY=VALUE (repeatable)")
	cmd.Flags().StringSliceVar(&f.startFrom, "start-from", nil, "Start from these node IDs instead of triggers")
	cmd.Flags().IntVar(&f.retries, "retries", 0, "Max retries for nodes without their own policy")
	cmd.Flags().DurationVar(&f.retryDelay, "retry-delay", 0, "Base retry delay (e.g. 500ms)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "Per-attempt node timeout (0 = unbounded)")
	cmd.Flags().StringVar(&f.joinMode, "join-mode", "", "Join release rule: distinct_sources or in_degree")
}

// options собирает engine.Options из флагов.
func (f *runFlags) options(cmd *cobra.Command) (engine.Options, error) {
	input, err := parseInput(f.input, f.inputFile, f.sets)
	if err != nil {
		return engine.Options{}, err
	}

	opts := engine.Options{
		InitialInput: input,
		StartFrom:    f.startFrom,
		RetryDelay:   f.retryDelay,
		Timeout:      f.timeout,
	}
	if cmd.Flags().Changed("retries") {
		if f.retries < 0 {
			return engine.Options{}, fmt.Errorf("--retries must be >= 0")
		}
		opts.Retries = domain.IntPtr(f.retries)
	}
	if f.joinMode != "" {
		mode, err := engine.ParseJoinMode(f.joinMode)
		if err != nil {
			return engine.Options{}, err
		}
		opts.JoinMode = mode
	}
	return opts, nil
}

// NewRunCmd создаёт команду локального запуска workflow.
func NewRunCmd(orchFn func() *orchestrator.Orchestrator, outputFn func() *Output) *cobra.Command {
	var flags runFlags
	var showTrace bool

	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Run a workflow file locally",
		Long: `Run a workflow (JSON or YAML) in this process.

If a delegate is configured (--delegate-url), the graph is sent to the
remote executor first and runs locally only if the delegate fails.`,
		Args: cobra.ExactArgs(1),
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

			run, report, err := orchFn().RunWorkflow(cmd.Context(), wf, opts)
			if err != nil && !errors.Is(err, engine.ErrRunCancelled) {
				return err
			}

			if out.IsJSON() {
				out.JSON(map[string]any{"run": run, "report": report})
			} else {
				printResults(out, wf, run.Results)
				if showTrace && report != nil {
					printTrace(out, report.Trace)
				}
			}

			out.Success(fmt.Sprintf("Run %s: %s (%s, %s)", run.ID, run.Status, run.Mode, run.Duration().Round(time.Millisecond)))

			switch run.Status {
			case domain.RunStatusFailed:
				return fmt.Errorf("%w: %d node(s) failed", ErrRunFailed, len(run.FailedNodes))
			case domain.RunStatusPartial:
				out.Warn(fmt.Sprintf("failed nodes: %v", run.FailedNodes))
			case domain.RunStatusCancelled:
				return err
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&showTrace, "trace", false, "Print the execution trace")

	return cmd
}

// printResults печатает результаты в порядке объявления узлов.
func printResults(out *Output, wf *domain.Workflow, results map[string]any) {
	headers := []string{"NODE", "STATUS", "OUTPUT"}
	rows := make([][]string, 0, len(results))

	for _, node := range wf.Nodes {
		result, ok := results[node.ID]
		if !ok {
			continue
		}

		status := "ok"
		output := compactJSON(result)
		if domain.IsErrorPayload(result) {
			status = "error"
			output = domain.ErrorMessage(result)
		}
		rows = append(rows, []string{node.ID, status, truncate(output, maxOutputWidth)})
	}

	out.Table(headers, rows)
}

// printTrace печатает события трассировки.
func printTrace(out *Output, trace []engine.TraceEvent) {
	headers := []string{"#", "EVENT", "NODE", "FROM", "DETAIL"}
	rows := make([][]string, len(trace))
	for i, ev := range trace {
		rows[i] = []string{strconv.Itoa(i + 1), string(ev.Kind), ev.NodeID, ev.From, truncate(ev.Detail, maxOutputWidth)}
	}
	out.Table(headers, rows)
}

func compactJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
