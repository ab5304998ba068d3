// Package main provides the entry point for the job digest CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "job_digest",
	Short: "Daily job digest with tailored resumes",
	Long: `job_digest gathers postings from job boards and web search, filters and ranks them against
your skills, optionally tailors your resume and a cover letter for the best matches, and
emails a digest with a CSV summary.`,
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
