// Command expensetracker serves per-session expense ledgers over HTTP and
// renders reports from exported CSV files.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
