package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"

	"github.com/hyperengineering/tally/internal/analytics"
	"github.com/hyperengineering/tally/internal/store"
	"github.com/hyperengineering/tally/internal/types"
	"github.com/hyperengineering/tally/internal/validation"
)

var reportToday string

var reportCmd = &cobra.Command{
	Use:   "report <email>",
	Short: "Print streaks and goal progress for an account",
	Long:  "Compute the same statistics the dashboard serves for every trackable of an account, as of today in the account's timezone or the date given by --today.",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&dbPathOverride, "db", "",
		"Database path (overrides config and TALLY_DB_PATH)")
	reportCmd.Flags().BoolVar(&jsonOutput, "json", false,
		"Output in JSON format")
	reportCmd.Flags().StringVar(&reportToday, "today", "",
		"Report as of this date (YYYY-MM-DD)")
}

// reportItem is one trackable's line in the report.
type reportItem struct {
	Trackable types.Trackable     `json:"trackable"`
	Stats     analytics.Stats     `json:"stats"`
	Goal      *types.Goal         `json:"goal"`
	Progress  *analytics.Progress `json:"progress"`
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	db, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	account, err := db.GetAccountByEmail(ctx, args[0])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("account %q not found", args[0])
		}
		return err
	}

	today, err := reportDate(account, reportToday, time.Now())
	if err != nil {
		return err
	}

	var records store.Store = db
	if cfg.IsDemo(account.Email) {
		records = store.NewDemoStore(account.ID, today)
	}

	items, err := buildReport(ctx, records, account.ID, today)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"account": account.Email,
			"today":   today,
			"items":   items,
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Report for %s as of %s\n\n", account.Email, today)
	if len(items) == 0 {
		fmt.Fprintln(out, "No trackables found.")
		return nil
	}

	w := newTabWriter(out)
	fmt.Fprintln(w, "TRACKABLE\tSTREAK\tLONGEST\tRATE 30D\tTOTAL\tGOAL")
	for _, it := range items {
		goal := "-"
		if it.Progress != nil {
			goal = fmt.Sprintf("%d/%d %s (%d%%, %s)",
				it.Progress.Current, it.Progress.Target, it.Progress.Period,
				it.Progress.Percentage, it.Progress.Status)
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d%%\t%d\t%s\n",
			it.Trackable.Name,
			it.Stats.CurrentStreak,
			it.Stats.LongestStreak,
			it.Stats.CompletionRate30d,
			it.Stats.TotalCompletions,
			goal,
		)
	}
	w.Flush()

	return nil
}

// reportDate resolves the report's calendar day from the flag or the
// account's timezone.
func reportDate(account *types.Account, flag string, now time.Time) (civil.Date, error) {
	if flag != "" {
		d, verr := validation.ParseDate("today", flag)
		if verr != nil {
			return civil.Date{}, fmt.Errorf("invalid --today: %s", verr.Message)
		}
		return d, nil
	}
	loc, err := time.LoadLocation(account.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return analytics.TodayIn(now, loc), nil
}

// buildReport computes stats and active-goal progress for every trackable
// the owner has, oldest trackable first.
func buildReport(ctx context.Context, s store.Store, ownerID string, today civil.Date) ([]reportItem, error) {
	trackables, err := s.ListTrackables(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list trackables: %w", err)
	}
	entries, err := s.ListEntries(ctx, ownerID, types.EntryFilter{})
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	byTrackable := make(map[string][]types.Entry)
	for _, e := range entries {
		byTrackable[e.TrackableID] = append(byTrackable[e.TrackableID], e)
	}
	goals, err := s.ListGoals(ctx, ownerID, "")
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	active := analytics.ActiveGoals(goals)

	items := make([]reportItem, 0, len(trackables))
	for _, t := range trackables {
		own := byTrackable[t.ID]
		item := reportItem{
			Trackable: t,
			Stats:     analytics.ComputeStats(own, today),
		}
		if goal, ok := active[t.ID]; ok {
			progress := analytics.ComputeProgress(goal, own, today)
			item.Goal = &goal
			item.Progress = &progress
		}
		items = append(items, item)
	}
	return items, nil
}
