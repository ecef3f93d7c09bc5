package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/taskhive/taskhive-core/internal/cli"
	"github.com/taskhive/taskhive-core/internal/core"
	"github.com/taskhive/taskhive-core/internal/logger"
	"go.uber.org/zap"
)

var (
	specFile     string
	specsInput   []string
	outputFormat string
	outputFile   string
	showProgress bool
	cliWorkers   int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run task specs locally",
	Long:  `Run task specs ("kind payload" lines from a file, flags, or stdin) on a local worker pool and print the outcomes.`,
	Run:   runCli,
}

func init() {
	runCmd.Flags().StringVarP(&specFile, "file", "i", "", "File containing task specs (one per line)")
	runCmd.Flags().StringSliceVarP(&specsInput, "task", "t", []string{}, "Task specs (can be used multiple times)")
	runCmd.Flags().StringVarP(&outputFormat, "format", "f", "table", "Output format: table, json, csv")
	runCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	runCmd.Flags().BoolVar(&showProgress, "progress", true, "Show progress while running")
	runCmd.Flags().IntVarP(&cliWorkers, "workers", "w", 4, "Number of pool workers")
}

func runCli(cmd *cobra.Command, args []string) {
	logger, err := logger.InitForCLI(cfg.App.LogLevel)
	if err != nil {
		fmt.Println("Failed to initialize logger:", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	coreInstance := core.New(core.Opts{DefaultTimeout: cfg.App.TaskTimeout})

	reader := cli.NewSpecReader()
	runner := cli.NewRunner(coreInstance)
	outputManager := cli.NewOutputManager()
	summaryPrinter := cli.NewSummaryPrinter()

	specs, source, err := reader.ReadSpecs(specFile, specsInput)
	if err != nil {
		logger.Error("error reading task specs", zap.Error(err))
		return
	}
	if len(specs) == 0 {
		logger.Error("no task specs provided")
		return
	}

	logger.Info("task specs loaded",
		zap.String("source", source),
		zap.Int("total", len(specs)))

	outcomes, err := runner.Run(specs, cli.RunOptions{
		Workers:      cliWorkers,
		ShowProgress: showProgress,
	})
	if err != nil {
		logger.Error("failed to run tasks", zap.Error(err))
		return
	}

	outputOptions := cli.OutputOptions{
		Format:   outputFormat,
		Filename: outputFile,
	}
	if err := outputManager.Output(outcomes, outputOptions); err != nil {
		logger.Error("failed to output results", zap.Error(err))
		return
	}

	summaryPrinter.PrintSummary(outcomes)
}
