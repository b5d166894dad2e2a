package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/dmitrijs2005/filegate/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-t string     bot token
//	-g string     database driver (pgx|sqlite)
//	-d string     database DSN
//	-u string     streaming app base URL
//	-a int        admin account id
//	-s int        storage channel id (negative channel ids are accepted)
//	-v duration   verification grant TTL (e.g. "24h")
//	-e duration   ephemeral deletion delay (e.g. "10m")
//	-o string     ops HTTP bind address
//	-l string     log level
//
// os.Args is first filtered with flagx.FilterArgs so the -c/-config flag of
// the JSON layer does not collide with this FlagSet.
func parseFlags(config *Config) error {
	args := flagx.FilterArgs(os.Args[1:], []string{"-t", "-g", "-d", "-u", "-a", "-s", "-v", "-e", "-o", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.BotToken, "t", config.BotToken, "bot token")
	fs.StringVar(&config.DatabaseDriver, "g", config.DatabaseDriver, "database driver (pgx|sqlite)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.AppURL, "u", config.AppURL, "streaming app base URL")
	fs.Int64Var(&config.AdminID, "a", config.AdminID, "admin account id")
	fs.Int64Var(&config.StorageChannelID, "s", config.StorageChannelID, "storage channel id")
	fs.DurationVar(&config.VerificationTTL, "v", config.VerificationTTL, "verification grant TTL")
	fs.DurationVar(&config.EphemeralDelay, "e", config.EphemeralDelay, "ephemeral deletion delay")
	fs.StringVar(&config.OpsAddr, "o", config.OpsAddr, "ops HTTP address")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
