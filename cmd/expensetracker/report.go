package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"expensetracker/internal/core"
	"expensetracker/internal/csvio"
	"expensetracker/internal/ledger"
	"expensetracker/internal/log"
	"expensetracker/internal/query"
)

var reportFlags struct {
	file       string
	policy     string
	start      string
	end        string
	categories []string
	top        int
	budget     string
	asOf       string
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize an exported expense CSV",
	Long: `Loads a CSV export into a throwaway ledger and prints the dashboard,
budget status, per-category and per-month breakdowns, the top categories
and amount statistics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := parseReportFlags(cmd)
		if err != nil {
			return err
		}

		var in io.Reader = cmd.InOrStdin()
		if reportFlags.file != "-" {
			f, err := os.Open(reportFlags.file)
			if err != nil {
				return wrapError("open input", err)
			}
			defer f.Close()
			in = f
		}

		l := ledger.New(ledger.WithBudget(opts.budget), ledger.WithClock(func() time.Time { return opts.now }))
		res, err := l.Import(in, opts.policy)
		if err != nil {
			return wrapError("import", err)
		}
		logger.WithComponent(log.ComponentCLI).Debug("CSV loaded", log.FieldCount, res.Count, log.FieldPolicy, string(res.Policy))

		return renderReport(cmd.OutOrStdout(), buildReport(l, opts))
	},
}

func init() {
	f := reportCmd.Flags()
	f.StringVarP(&reportFlags.file, "file", "f", "-", "CSV file to load, - for stdin")
	f.StringVar(&reportFlags.policy, "policy", "", "import policy: permissive or strict (default from config)")
	f.StringVar(&reportFlags.start, "start", "", "first day to include (YYYY-MM-DD)")
	f.StringVar(&reportFlags.end, "end", "", "last day to include (YYYY-MM-DD)")
	f.StringSliceVarP(&reportFlags.categories, "category", "c", nil, "only include these categories")
	f.IntVar(&reportFlags.top, "top", 5, "number of top categories to list")
	f.StringVar(&reportFlags.budget, "budget", "", "monthly budget (default from config)")
	f.StringVar(&reportFlags.asOf, "as-of", "", "treat this day as today (YYYY-MM-DD)")
}

type reportOptions struct {
	policy     csvio.Policy
	budget     decimal.Decimal
	dates      query.DateRange
	categories []string
	top        int
	now        time.Time
}

func parseReportFlags(cmd *cobra.Command) (reportOptions, error) {
	opts := reportOptions{top: reportFlags.top, now: time.Now()}
	var err error

	policy := reportFlags.policy
	if policy == "" {
		policy = cfg.ImportPolicy
	}
	if opts.policy, err = csvio.ParsePolicy(policy); err != nil {
		return opts, err
	}

	if reportFlags.budget != "" {
		opts.budget, err = core.ParseBudget(reportFlags.budget)
	} else {
		opts.budget, err = cfg.Budget()
	}
	if err != nil {
		return opts, err
	}

	if reportFlags.start != "" {
		d, err := core.ParseDate(reportFlags.start)
		if err != nil {
			return opts, fmt.Errorf("--start: %w", err)
		}
		opts.dates.Start = &d
	}
	if reportFlags.end != "" {
		d, err := core.ParseDate(reportFlags.end)
		if err != nil {
			return opts, fmt.Errorf("--end: %w", err)
		}
		opts.dates.End = &d
	}
	if reportFlags.asOf != "" {
		d, err := core.ParseDate(reportFlags.asOf)
		if err != nil {
			return opts, fmt.Errorf("--as-of: %w", err)
		}
		opts.now = d.Time
	}
	if cmd.Flags().Changed("category") {
		opts.categories = reportFlags.categories
		if opts.categories == nil {
			opts.categories = []string{}
		}
	}
	if opts.top < 0 {
		return opts, errors.New("--top must not be negative")
	}
	return opts, nil
}

type report struct {
	first, last core.Date
	total       int
	dashboard   query.Dashboard
	categories  []core.Group
	months      []core.Group
	top         []core.Group
	stats       core.Stats
	hasStats    bool
}

func buildReport(l *ledger.Ledger, opts reportOptions) report {
	all := l.ExportAll()
	filtered := query.Filter(all, opts.dates, opts.categories)
	first, last := l.DateBounds()

	rep := report{
		first:      first,
		last:       last,
		total:      len(all),
		dashboard:  query.BuildDashboard(filtered, l.Budget(), opts.now),
		categories: query.GroupBy(filtered, query.ByCategory),
		months:     query.GroupBy(filtered, query.ByMonth),
		top:        query.TopCategories(filtered, opts.top),
	}
	rep.stats, rep.hasStats = query.DescribeStats(filtered)
	return rep
}

func renderReport(w io.Writer, rep report) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Expense report"))
	b.WriteString("\n")
	if rep.total == 0 {
		b.WriteString(mutedStyle.Render("No expenses loaded."))
		b.WriteString("\n")
		_, err := io.WriteString(w, b.String())
		return err
	}
	fmt.Fprintf(&b, "%s\n\n", mutedStyle.Render(fmt.Sprintf("%d records, %s to %s", rep.total, rep.first, rep.last)))

	d := rep.dashboard
	row(&b, "Total", core.FormatAmount(d.Summary.Total))
	row(&b, "Average", core.FormatAmount(d.Summary.Average))
	row(&b, "Count", fmt.Sprint(d.Summary.Count))
	row(&b, "This month", core.FormatAmount(d.CurrentMonth))

	st := d.Budget
	budget := fmt.Sprintf("%s of %s (%.1f%%)", core.FormatAmount(st.Spent), core.FormatAmount(st.Budget), st.PercentageUsed)
	switch st.Level {
	case core.BudgetExceeded:
		budget += fmt.Sprintf(", over by %s", core.FormatAmount(st.Overrun))
	default:
		budget += fmt.Sprintf(", %s left", core.FormatAmount(st.Remaining))
	}
	fmt.Fprintf(&b, "%s%s\n", labelStyle.Render("Budget"), budgetStyle(st.Level).Render(budget))

	groupTable(&b, "By category", rep.categories, true)
	groupTable(&b, "By month", rep.months, true)
	groupTable(&b, fmt.Sprintf("Top %d categories", len(rep.top)), rep.top, false)

	if rep.hasStats {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render("Amounts"))
		b.WriteString("\n")
		row(&b, "Min", core.FormatAmount(rep.stats.Min))
		row(&b, "Median", core.FormatAmount(rep.stats.Median))
		row(&b, "Max", core.FormatAmount(rep.stats.Max))
		row(&b, "Std dev", fmt.Sprintf("%.2f", rep.stats.StdDev))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func row(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "%s%s\n", labelStyle.Render(label), valueStyle.Render(value))
}

func groupTable(b *strings.Builder, title string, groups []core.Group, withMean bool) {
	b.WriteString("\n")
	b.WriteString(headerStyle.Render(title))
	b.WriteString("\n")
	if len(groups) == 0 {
		b.WriteString(mutedStyle.Render("  none"))
		b.WriteString("\n")
		return
	}
	for _, g := range groups {
		line := keyColStyle.Render(g.Key) + numColStyle.Render(core.FormatAmount(g.Sum))
		if withMean {
			line += numColStyle.Render(core.FormatAmount(g.Mean))
		}
		line += cntColStyle.Render(fmt.Sprint(g.Count))
		b.WriteString(line)
		b.WriteString("\n")
	}
}
