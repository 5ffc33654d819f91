package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/artpar/modgate/adapters/clock"
	"github.com/artpar/modgate/adapters/sqlite"
	"github.com/artpar/modgate/app"
	"github.com/artpar/modgate/domain/access"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage access keys",
	Long: `Manage access keys in the local store.

Each application can hold multiple keys. A key authenticates requests
to modules that require authentication, via the access_key parameter or
the basic-auth password.

Examples:
  modgate keys list
  modgate keys list --application=3
  modgate keys create --application=3 --name=ci
  modgate keys revoke 12`,
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List access keys",
	RunE:  runKeysList,
}

var keysCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new access key",
	RunE:  runKeysCreate,
}

var keysRevokeCmd = &cobra.Command{
	Use:   "revoke <key-id>",
	Short: "Revoke an access key",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysRevoke,
}

var (
	keyApplicationID int64
	keyName          string
	keyPermissions   []string
	keyExpiresIn     time.Duration
)

func init() {
	rootCmd.AddCommand(keysCmd)

	keysCmd.AddCommand(keysListCmd)
	keysCmd.AddCommand(keysCreateCmd)
	keysCmd.AddCommand(keysRevokeCmd)

	keysListCmd.Flags().Int64Var(&keyApplicationID, "application", 0, "filter by application ID")
	keysCreateCmd.Flags().Int64Var(&keyApplicationID, "application", 0, "application ID (required)")
	keysCreateCmd.Flags().StringVar(&keyName, "name", "", "key name (optional)")
	keysCreateCmd.Flags().StringSliceVar(&keyPermissions, "permission", nil, "granted permission (repeatable)")
	keysCreateCmd.Flags().DurationVar(&keyExpiresIn, "expires-in", 0, "key lifetime, e.g. 720h (default: never)")
	keysCreateCmd.MarkFlagRequired("application")
}

func accessService() (*app.AccessService, func(), error) {
	db, cfg, err := openDatabase()
	if err != nil {
		return nil, nil, err
	}
	svc := app.NewAccessService(sqlite.NewAccessStore(db), clock.Real{}, cfg.Auth.KeyPrefix, zerolog.Nop())
	return svc, func() { db.Close() }, nil
}

func runKeysList(cmd *cobra.Command, args []string) error {
	svc, done, err := accessService()
	if err != nil {
		return err
	}
	defer done()

	records, err := svc.List(context.Background(), keyApplicationID)
	if err != nil {
		return fmt.Errorf("failed to list keys: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		if keyApplicationID != 0 {
			fmt.Fprintf(out, "No keys found for application %d.\n", keyApplicationID)
		} else {
			fmt.Fprintln(out, "No access keys found.")
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Create a key with: modgate keys create --application=<id>")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tAPPLICATION\tNAME\tSTATUS\tPERMISSIONS\tCREATED\tLAST USED")
	fmt.Fprintln(w, "--\t-----------\t----\t------\t-----------\t-------\t---------")

	for _, r := range records {
		lastUsed := "never"
		if r.LastUsedAt != nil {
			lastUsed = r.LastUsedAt.Format(time.RFC3339)
		}
		perms := "*"
		if len(r.Permissions) > 0 {
			perms = strings.Join(r.Permissions, ",")
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.ApplicationID, r.Name, r.Status, perms, r.CreatedAt.Format("2006-01-02"), lastUsed)
	}

	return w.Flush()
}

func runKeysCreate(cmd *cobra.Command, args []string) error {
	svc, done, err := accessService()
	if err != nil {
		return err
	}
	defer done()

	params := access.CreateParams{
		ApplicationID: keyApplicationID,
		Name:          keyName,
		Permissions:   keyPermissions,
	}
	if keyExpiresIn > 0 {
		expires := time.Now().Add(keyExpiresIn)
		params.ExpiresAt = &expires
	}

	rawKey, rec, err := svc.Issue(context.Background(), params)
	if err != nil {
		return fmt.Errorf("failed to create key: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s Created access key %d for application %d\n", checkMark, rec.ID, rec.ApplicationID)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Key: %s\n", rawKey)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Store this key securely. It will not be shown again.")
	return nil
}

func runKeysRevoke(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid key id %q", args[0])
	}

	svc, done, err := accessService()
	if err != nil {
		return err
	}
	defer done()

	if err := svc.Revoke(context.Background(), id); err != nil {
		return fmt.Errorf("failed to revoke key: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Revoked access key %d\n", checkMark, id)
	return nil
}
