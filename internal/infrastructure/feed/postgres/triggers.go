package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed notify.sql
var notifyFunctionSQL string

const triggerName = "live_feed_notify"

var channelPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// ValidateChannel rejects channel names that would need quoting. The name is
// embedded as a trigger argument literal.
func ValidateChannel(channel string) error {
	if !channelPattern.MatchString(channel) {
		return fmt.Errorf("invalid notification channel %q", channel)
	}
	return nil
}

// triggerStatements returns the DDL that (re)creates the notify trigger on
// each table. Re-running it is harmless.
func triggerStatements(channel string, tables []string) []string {
	stmts := []string{notifyFunctionSQL}
	for _, table := range tables {
		ident := pgx.Identifier{table}.Sanitize()
		stmts = append(stmts,
			fmt.Sprintf("DROP TRIGGER IF EXISTS %s ON %s", triggerName, ident),
			fmt.Sprintf(
				"CREATE TRIGGER %s AFTER INSERT OR UPDATE OR DELETE ON %s FOR EACH ROW EXECUTE FUNCTION live_feed_notify('%s')",
				triggerName, ident, channel,
			),
		)
	}
	return stmts
}

// InstallTriggers installs the notify function and one row trigger per table
// in a single transaction.
func InstallTriggers(ctx context.Context, pool *pgxpool.Pool, channel string, tables []string) error {
	if err := ValidateChannel(channel); err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		for _, stmt := range triggerStatements(channel, tables) {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("install change triggers: %w", err)
			}
		}
		return nil
	})
}
