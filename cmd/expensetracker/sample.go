package main

import (
	"os"

	"github.com/spf13/cobra"

	"expensetracker/internal/core"
	"expensetracker/internal/csvio"
)

var sampleOut string

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Write the sample expense dataset as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		if sampleOut == "" || sampleOut == "-" {
			return csvio.Encode(cmd.OutOrStdout(), csvio.SampleRecords())
		}
		return writeCSVFile(sampleOut, csvio.SampleRecords())
	},
}

func init() {
	sampleCmd.Flags().StringVar(&sampleOut, "out", "-", "output file, - for stdout")
}

func writeCSVFile(path string, records []core.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return wrapError("create output", err)
	}
	if err := csvio.Encode(f, records); err != nil {
		f.Close()
		return wrapError("write output", err)
	}
	return f.Close()
}
