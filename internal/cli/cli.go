package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/taskhive/taskhive-core/internal/core"
	workerpool "github.com/taskhive/taskhive-core/internal/worker"
)

// SpecReader collects task specs from stdin, a file, or repeated flags,
// in that order of precedence. Lines are "kind payload"; blank lines and
// "#" comments are skipped.
type SpecReader struct{}

func NewSpecReader() *SpecReader {
	return &SpecReader{}
}

func parseLine(line string) (core.TaskSpec, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return core.TaskSpec{}, false
	}
	kind, payload, _ := strings.Cut(line, " ")
	return core.TaskSpec{Kind: kind, Payload: strings.TrimSpace(payload)}, true
}

func (sr *SpecReader) File(filename string) ([]core.TaskSpec, error) {
	if filename == "" {
		return nil, nil
	}

	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var specs []core.TaskSpec
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if spec, ok := parseLine(scanner.Text()); ok {
			specs = append(specs, spec)
		}
	}
	return specs, scanner.Err()
}

func (sr *SpecReader) Stdin() ([]core.TaskSpec, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return nil, nil
	}
	if (stat.Mode() & os.ModeCharDevice) != 0 {
		return nil, nil
	}

	var specs []core.TaskSpec
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if spec, ok := parseLine(scanner.Text()); ok {
			specs = append(specs, spec)
		}
	}
	return specs, scanner.Err()
}

// ReadSpecs returns the specs and which source provided them.
func (sr *SpecReader) ReadSpecs(filename string, args []string) ([]core.TaskSpec, string, error) {
	stdinSpecs, err := sr.Stdin()
	if err != nil {
		return nil, "", fmt.Errorf("error reading from stdin: %w", err)
	}
	if len(stdinSpecs) > 0 {
		return stdinSpecs, "stdin", nil
	}

	if filename != "" {
		fileSpecs, err := sr.File(filename)
		if err != nil {
			return nil, "", fmt.Errorf("error reading from file %s: %w", filename, err)
		}
		if len(fileSpecs) > 0 {
			return fileSpecs, "file", nil
		}
	}

	var argSpecs []core.TaskSpec
	for _, arg := range args {
		if spec, ok := parseLine(arg); ok {
			argSpecs = append(argSpecs, spec)
		}
	}
	if len(argSpecs) > 0 {
		return argSpecs, "arguments", nil
	}

	return nil, "none", nil
}

type RunOptions struct {
	Workers      int
	ShowProgress bool
}

// Runner executes specs on a local worker pool and returns the outcomes
// in submission order.
type Runner struct {
	core *core.Core
}

func NewRunner(coreInstance *core.Core) *Runner {
	return &Runner{core: coreInstance}
}

func (r *Runner) Run(specs []core.TaskSpec, options RunOptions) ([]core.TaskOutcome, error) {
	workers := options.Workers
	if workers < 1 {
		workers = 1
	}

	pool, err := workerpool.New(workerpool.Config{WorkerCount: workers}, nil)
	if err != nil {
		return nil, err
	}
	defer pool.Shutdown()

	futures := make([]*workerpool.Future, len(specs))
	for i, spec := range specs {
		future, err := pool.SubmitFuture(workerpool.Task{
			ID:      fmt.Sprintf("cli/%d", i),
			Data:    spec,
			Execute: r.execute,
		})
		if err != nil {
			return nil, err
		}
		futures[i] = future
	}

	outcomes := make([]core.TaskOutcome, 0, len(specs))
	for i, future := range futures {
		value, err := future.Get(context.Background())
		outcome, ok := value.(core.TaskOutcome)
		if !ok || outcome.Status == "" {
			// Specs that could not run at all (unknown kind, panic)
			// produce no outcome, so synthesize an error one.
			outcome = core.TaskOutcome{
				Status:  core.OutcomeStatusError,
				Kind:    specs[i].Kind,
				Payload: specs[i].Payload,
			}
			if err != nil {
				outcome.Error = err.Error()
			}
		}
		outcomes = append(outcomes, outcome)

		if options.ShowProgress {
			fmt.Printf("\r[%s] Progress: %d/%d (%.1f%%)",
				outcome.Status, i+1, len(specs),
				float64(i+1)/float64(len(specs))*100)
		}
	}

	if options.ShowProgress {
		fmt.Println()
	}
	return outcomes, nil
}

func (r *Runner) execute(ctx context.Context, data interface{}) (interface{}, error) {
	return r.core.Run(ctx, data.(core.TaskSpec))
}

type OutputOptions struct {
	Format   string
	Filename string
}

type OutputManager struct{}

func NewOutputManager() *OutputManager {
	return &OutputManager{}
}

func (om *OutputManager) Output(outcomes []core.TaskOutcome, options OutputOptions) error {
	var output string
	var err error

	switch options.Format {
	case "json":
		output, err = om.JSON(outcomes)
	case "csv":
		output, err = om.CSV(outcomes)
	case "table":
		output = om.Table(outcomes)
	default:
		return fmt.Errorf("unsupported output format: %s", options.Format)
	}

	if err != nil {
		return err
	}

	if options.Filename != "" {
		return os.WriteFile(options.Filename, []byte(output), 0644)
	}

	fmt.Print(output)
	return nil
}

func (om *OutputManager) JSON(outcomes []core.TaskOutcome) (string, error) {
	data, err := json.MarshalIndent(outcomes, "", "  ")
	return string(data), err
}

func (om *OutputManager) CSV(outcomes []core.TaskOutcome) (string, error) {
	lines := []string{"Status,Kind,Duration(ms),Output,Error,Payload"}

	for _, outcome := range outcomes {
		line := fmt.Sprintf("%s,%s,%d,%s,%s,%s",
			outcome.Status,
			outcome.Kind,
			outcome.Duration.Milliseconds(),
			escapeCSV(outcome.Output),
			escapeCSV(outcome.Error),
			escapeCSV(outcome.Payload))
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n"), nil
}

func (om *OutputManager) Table(outcomes []core.TaskOutcome) string {
	var lines []string

	lines = append(lines, fmt.Sprintf("%-8s %-10s %-12s %-40s %-40s",
		"STATUS", "KIND", "DURATION(ms)", "OUTPUT", "ERROR"))
	lines = append(lines, strings.Repeat("-", 115))

	for _, outcome := range outcomes {
		line := fmt.Sprintf("%-8s %-10s %-12d %-40s %-40s",
			outcome.Status,
			outcome.Kind,
			outcome.Duration.Milliseconds(),
			truncateString(outcome.Output, 40),
			truncateString(outcome.Error, 40))
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n") + "\n"
}

type SummaryPrinter struct{}

func NewSummaryPrinter() *SummaryPrinter {
	return &SummaryPrinter{}
}

// PrintSummary prints a summary of the run
func (sp *SummaryPrinter) PrintSummary(outcomes []core.TaskOutcome) {
	total := len(outcomes)
	successful := 0
	failed := 0
	var totalDuration time.Duration

	for _, outcome := range outcomes {
		if outcome.Error == "" {
			successful++
			totalDuration += outcome.Duration
		} else {
			failed++
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("SUMMARY")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Total tasks: %d\n", total)
	fmt.Printf("Successful: %d (%.1f%%)\n", successful, float64(successful)/float64(total)*100)
	fmt.Printf("Failed: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)

	if successful > 0 {
		avgDuration := totalDuration / time.Duration(successful)
		fmt.Printf("Average duration: %d ms\n", avgDuration.Milliseconds())
	}
}

// Utility functions
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func escapeCSV(s string) string {
	if strings.Contains(s, ",") || strings.Contains(s, "\"") || strings.Contains(s, "\n") {
		s = strings.ReplaceAll(s, "\"", "\"\"")
		return "\"" + s + "\""
	}
	return s
}
