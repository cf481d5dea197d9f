package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hyperengineering/tally/internal/config"
	"github.com/hyperengineering/tally/internal/store"
	"github.com/spf13/cobra"
)

var (
	dbPathOverride string
	jsonOutput     bool
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage Tally accounts",
	Long:  "Create, list, and delete accounts without running the server. Each account gets an API token for the HTTP API.",
}

var (
	createTimezone string
	deleteForce    bool
)

var accountCreateCmd = &cobra.Command{
	Use:   "create <email>",
	Short: "Create an account and print its API token",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountCreate,
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all accounts",
	Args:  cobra.NoArgs,
	RunE:  runAccountList,
}

var accountDeleteCmd = &cobra.Command{
	Use:   "delete <email>",
	Short: "Delete an account and all its data",
	Long:  "Permanently delete an account with its trackables, entries, goals and dashboard settings. Requires --force or interactive confirmation.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountDelete,
}

func init() {
	accountCmd.PersistentFlags().StringVar(&dbPathOverride, "db", "",
		"Database path (overrides config and TALLY_DB_PATH)")
	accountCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output in JSON format")

	accountCreateCmd.Flags().StringVar(&createTimezone, "timezone", "",
		"IANA timezone used to decide the account's current day (default from config)")
	accountDeleteCmd.Flags().BoolVar(&deleteForce, "force", false,
		"Skip confirmation prompt")

	accountCmd.AddCommand(accountCreateCmd)
	accountCmd.AddCommand(accountListCmd)
	accountCmd.AddCommand(accountDeleteCmd)
}

// openStore loads config and opens the SQLite store, honoring --db.
func openStore() (*store.SQLiteStore, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	path := cfg.Database.Path
	if dbPathOverride != "" {
		path = dbPathOverride
	}
	s, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, nil, err
	}
	return s, cfg, nil
}

func runAccountCreate(cmd *cobra.Command, args []string) error {
	email := strings.TrimSpace(args[0])
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email %q", args[0])
	}

	db, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	tz := createTimezone
	if tz == "" {
		tz = cfg.Accounts.DefaultTimezone
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", tz, err)
	}

	account, err := db.CreateAccount(context.Background(), email, tz)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return fmt.Errorf("account %q already exists", email)
		}
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"id":       account.ID,
			"email":    account.Email,
			"timezone": account.Timezone,
			"token":    account.Token,
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created account %q\n", account.Email)
	fmt.Fprintf(out, "  ID:       %s\n", account.ID)
	fmt.Fprintf(out, "  Timezone: %s\n", account.Timezone)
	fmt.Fprintf(out, "  Token:    %s\n", account.Token)
	fmt.Fprintln(cmd.ErrOrStderr(), "Store the token now; it is not shown again.")
	return nil
}

func runAccountList(cmd *cobra.Command, args []string) error {
	db, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	accounts, err := db.ListAccounts(context.Background())
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}

	if jsonOutput {
		items := make([]map[string]any, len(accounts))
		for i, a := range accounts {
			items[i] = map[string]any{
				"id":       a.ID,
				"email":    a.Email,
				"timezone": a.Timezone,
				"created":  a.CreatedAt,
				"demo":     cfg.IsDemo(a.Email),
			}
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"accounts": items,
			"total":    len(items),
		})
	}

	if len(accounts) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No accounts found.")
		return nil
	}

	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "EMAIL\tTIMEZONE\tCREATED\tDEMO")
	for _, a := range accounts {
		demo := "-"
		if cfg.IsDemo(a.Email) {
			demo = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			a.Email,
			a.Timezone,
			a.CreatedAt.Format("2006-01-02 15:04"),
			demo,
		)
	}
	w.Flush()

	return nil
}

func runAccountDelete(cmd *cobra.Command, args []string) error {
	email := strings.ToLower(strings.TrimSpace(args[0]))
	ctx := context.Background()

	db, _, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	account, err := db.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("account %q not found", email)
		}
		return err
	}

	// Interactive confirmation unless --force
	if !deleteForce {
		errOut := cmd.ErrOrStderr()
		fmt.Fprintf(errOut, "WARNING: This will permanently delete account %q and all its data.\n", email)
		fmt.Fprint(errOut, "Type the email to confirm: ")

		reader := bufio.NewReader(cmd.InOrStdin())
		input, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}

		if strings.ToLower(strings.TrimSpace(input)) != email {
			fmt.Fprintln(errOut, "Aborted. Email did not match.")
			return nil
		}
	}

	if err := db.DeleteAccount(ctx, account.ID); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"email":   email,
			"deleted": true,
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted account %q\n", email)
	return nil
}

// printJSON marshals v to JSON and writes to the given writer.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newTabWriter returns a configured tabwriter for aligned columns.
func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}
