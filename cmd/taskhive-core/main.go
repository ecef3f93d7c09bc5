package main

import (
	"fmt"
	"log"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/taskhive/taskhive-core/internal/config"
)

// Build-time variables (injected via -ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	date      = "unknown"
	goVersion = runtime.Version()
	platform  = runtime.GOOS + "/" + runtime.GOARCH

	cfg *config.Config
)

func getVersionInfo() string {
	commitHash := commit
	if len(commit) > 8 {
		commitHash = commit[:8]
	}
	return fmt.Sprintf("taskhive-core %s (%s) built with %s on %s at %s",
		version, commitHash, goVersion, platform, date)
}

var rootCmd = &cobra.Command{
	Use:     "taskhive-core",
	Version: version,
	Short:   "taskhive-core task execution service",
	Long:    `A fixed-size worker pool service that queues and executes task specs (sleep, checksum, probe, or custom kinds) over an HTTP API or from the command line.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		fmt.Println(getVersionInfo())
	},
}

func init() {
	cfg = config.Load()
	rootCmd.SetVersionTemplate(getVersionInfo() + "\n")
	rootCmd.AddCommand(serveCmd, runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
