package main

// Prints the unpaid invoices that are overdue or fall due soon. The exit
// status is 1 when something is overdue, so the command can drive cron mails.

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/denysvitali/fatture/pkg/cli"
	"github.com/denysvitali/fatture/pkg/logutils"
	"github.com/denysvitali/fatture/pkg/models"
)

var args struct {
	Days     int    `arg:"--days,env:DEADLINE_DAYS" default:"7" help:"how many days ahead count as upcoming"`
	Assign   bool   `arg:"--assign" help:"assign due dates from payment terms first"`
	LogLevel string `arg:"--log-level,env:LOG_LEVEL" default:"info"`

	cli.DatabaseArgs
}

var log = logrus.StandardLogger()

func main() {
	if err := cli.LoadEnv(); err != nil {
		log.Fatalf("load .env: %v", err)
	}
	arg.MustParse(&args)
	if err := cli.FillKeychainValues(&args); err != nil {
		log.Fatalf("fill keychain values: %v", err)
	}
	logutils.SetLoggerLevel(args.LogLevel)
	ctx := context.Background()

	st, err := args.DatabaseArgs.Open()
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	if args.Assign {
		n, err := st.AssignDueDates(ctx)
		if err != nil {
			log.Fatalf("assign due dates: %v", err)
		}
		log.Debugf("assigned %d due dates", n)
	}

	overdue, upcoming, err := st.Deadlines(ctx, time.Now(), args.Days)
	if err != nil {
		log.Fatalf("deadlines: %v", err)
	}
	printSection(os.Stdout, "Overdue", overdue)
	printSection(os.Stdout, fmt.Sprintf("Due within %d days", args.Days), upcoming)
	if len(overdue) > 0 {
		st.Close()
		os.Exit(1)
	}
}

func printSection(w io.Writer, title string, invoices []models.Invoice) {
	sum := decimal.Zero
	fmt.Fprintf(w, "%s (%d)\n", title, len(invoices))
	for _, inv := range invoices {
		total := "-"
		if inv.Total.Valid {
			total = inv.Total.Decimal.StringFixed(2)
			sum = sum.Add(inv.Total.Decimal)
		}
		fmt.Fprintf(w, "  %s  %-40s %10s\n", inv.DueDate.Format(time.DateOnly), inv.Label(), total)
	}
	if len(invoices) > 0 {
		fmt.Fprintf(w, "  %-52s %10s\n", "total", sum.StringFixed(2))
	}
}
