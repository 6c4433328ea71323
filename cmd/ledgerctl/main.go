// ledgerctl seeds, inspects and clears the notice ledger.
//
//	ledgerctl seed  [-from YYYY-MM-DD] [-to YYYY-MM-DD]
//	ledgerctl view  [-type TYPE] [-limit N]
//	ledgerctl view deliveries [-limit N]
//	ledgerctl clear [-type TYPE] [-id APPOINTMENT_ID] -yes
//
// seed marks every confirmed/cancelled appointment in the range as already
// notified WITHOUT sending anything, so a fresh install does not message
// patients about appointments that predate the system.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/weclinic/appointment-notifier/internal/config"
	"github.com/weclinic/appointment-notifier/internal/ledger"
	"github.com/weclinic/appointment-notifier/internal/notice"
	"github.com/weclinic/appointment-notifier/internal/schedule"
	"github.com/weclinic/appointment-notifier/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database connect failed: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := ledger.NewStore(pool)

	switch os.Args[1] {
	case "seed":
		err = runSeed(ctx, cfg, store, logger, os.Args[2:])
	case "view":
		err = runView(ctx, store, ledger.NewDeliveryLog(pool), os.Args[2:])
	case "clear":
		err = runClear(ctx, store, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: ledgerctl <seed|view|clear> [flags]")
}

func runSeed(ctx context.Context, cfg *config.Config, store *ledger.Store, logger *logging.Logger, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	defaultFrom := time.Now().AddDate(0, 0, -60).Format(time.DateOnly)
	defaultTo := time.Now().AddDate(0, 0, cfg.DaysAhead).Format(time.DateOnly)
	from := fs.String("from", defaultFrom, "range start (YYYY-MM-DD)")
	to := fs.String("to", defaultTo, "range end (YYYY-MM-DD)")
	_ = fs.Parse(args)

	if cfg.APIBase == "" || cfg.APIUser == "" || cfg.APIPass == "" || cfg.ClinicCID == "" {
		return fmt.Errorf("ledgerctl: scheduling API credentials are required for seed")
	}
	source := schedule.NewClient(cfg.APIBase, cfg.APIUser, cfg.APIPass, cfg.ClinicCID, cfg.FetchTimeout)

	logger.Info("seeding ledger, no messages will be sent", "from", *from, "to", *to)

	var marked, skipped int
	for page := 0; page < cfg.MaxPages; page++ {
		resp, err := source.FetchPage(ctx, *from, *to, page)
		if err != nil {
			logger.Warn("page fetch failed, skipping", "page", page, "error", err)
			continue
		}
		for i := range resp.Appointments {
			appt := &resp.Appointments[i]
			if appt.ID == 0 {
				continue
			}
			var noticeType notice.Type
			switch notice.Classify(appt.Status) {
			case notice.ClassCancellation:
				noticeType = notice.TypeCancellation
			case notice.ClassConfirmation:
				noticeType = notice.TypeConfirmation
			default:
				skipped++
				continue
			}
			err := store.Upsert(ctx, ledger.Entry{
				AppointmentID:      appt.ID,
				NoticeType:         string(noticeType),
				Date:               appt.Date(),
				Time:               appt.StartTime(),
				ConsultationTypeID: appt.ConsultationTypeID,
			})
			if err != nil {
				return fmt.Errorf("ledgerctl: seed appointment %d: %w", appt.ID, err)
			}
			marked++
		}
		if resp.TotalPages != nil {
			if page+1 >= *resp.TotalPages {
				break
			}
		} else if len(resp.Appointments) == 0 {
			break
		}
	}

	fmt.Printf("seeded %d entries (%d records without a notifiable status skipped)\n", marked, skipped)
	return nil
}

func runView(ctx context.Context, store *ledger.Store, deliveries *ledger.DeliveryLog, args []string) error {
	if len(args) > 0 && args[0] == "deliveries" {
		return viewDeliveries(ctx, deliveries, args[1:])
	}

	fs := flag.NewFlagSet("view", flag.ExitOnError)
	noticeType := fs.String("type", "", "filter by notice type")
	limit := fs.Int("limit", 100, "max rows")
	_ = fs.Parse(args)

	counts, err := store.CountByType(ctx)
	if err != nil {
		return err
	}
	fmt.Println("entries per notice type:")
	for t, n := range counts {
		fmt.Printf("  %-24s %d\n", t, n)
	}

	entries, err := store.List(ctx, *noticeType, *limit)
	if err != nil {
		return err
	}
	fmt.Printf("\n%-12s %-24s %-12s %-6s %s\n", "ID", "TYPE", "DATE", "TIME", "CREATED")
	for _, e := range entries {
		fmt.Printf("%-12d %-24s %-12s %-6s %s\n",
			e.AppointmentID, e.NoticeType, e.Date, e.Time, e.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func viewDeliveries(ctx context.Context, deliveries *ledger.DeliveryLog, args []string) error {
	fs := flag.NewFlagSet("view deliveries", flag.ExitOnError)
	limit := fs.Int("limit", 50, "max rows")
	_ = fs.Parse(args)

	rows, err := deliveries.Recent(ctx, *limit)
	if err != nil {
		return err
	}
	fmt.Printf("%-12s %-24s %-14s %-14s %s\n", "ID", "TYPE", "DECISION", "PHONE", "SENT")
	for _, d := range rows {
		fmt.Printf("%-12d %-24s %-14s %-14s %s\n",
			d.AppointmentID, d.NoticeType, d.Decision, d.Phone, d.SentAt.Format(time.RFC3339))
	}
	return nil
}

func runClear(ctx context.Context, store *ledger.Store, args []string) error {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	noticeType := fs.String("type", "", "restrict to one notice type")
	appointmentID := fs.Int64("id", 0, "restrict to one appointment id")
	yes := fs.Bool("yes", false, "confirm deletion")
	_ = fs.Parse(args)

	if !*yes {
		return fmt.Errorf("ledgerctl: clear is destructive, re-run with -yes")
	}

	removed, err := store.Clear(ctx, *noticeType, *appointmentID)
	if err != nil {
		return err
	}
	fmt.Printf("removed %d entries\n", removed)
	return nil
}
