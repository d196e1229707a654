// Package main provides the converse CLI for running generation jobs and
// maintenance tasks against a configured workspace without the HTTP server.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Global flags
var (
	jsonOutput bool
	verbose    bool
)

// Styles for output
var (
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#86b300",
		Dark:  "#c2d94c",
	})
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#f2ae49",
		Dark:  "#ffb454",
	})
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#f07171",
		Dark:  "#f07178",
	})
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#828c99",
		Dark:  "#6c7680",
	})
	boldStyle = lipgloss.NewStyle().Bold(true)
)

var rootCmd = &cobra.Command{
	Use:   "converse",
	Short: "Generate demo conversations in chat channels",
	Long: `converse fills chat channels with realistic generated conversations.

Configuration is read from the environment (and a .env file if present),
the same way the server reads it.

Examples:
  converse generate -c C0123 -u U0456 --posts 3 --replies 1-2 --participants 3-5
  converse extend -c C0123 --thread 1700000000.000100 -u U0456
  converse canvas -c C0123
  converse design-channels --customer Contoso --use-case "store rollout"
  converse report
  converse cleanup`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err != nil {
			logrus.Debug("No .env file found, using environment variables")
		}
		logrus.SetLevel(logrus.WarnLevel)
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(extendCmd)
	rootCmd.AddCommand(canvasCmd)
	rootCmd.AddCommand(designCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(transcriptsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, failStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
