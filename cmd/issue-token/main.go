// Command issue-token mints an access token for a scanner device, an
// integration or the cron worker calling the API.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/angelmondragon/wavepick-backend/pkg/auth"
	"github.com/angelmondragon/wavepick-backend/pkg/config"
	"github.com/angelmondragon/wavepick-backend/pkg/enums"
	"github.com/angelmondragon/wavepick-backend/pkg/logger"
	"github.com/joho/godotenv"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "issue-token", Output: os.Stderr})
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	if err := issue(os.Args[1:], cfg.JWT, time.Now().UTC(), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "issue-token: %v\n", err)
		os.Exit(2)
	}
}

// issue parses args and writes one signed token followed by a newline.
func issue(args []string, jwtCfg config.JWTConfig, now time.Time, out io.Writer) error {
	fs := flag.NewFlagSet("issue-token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	tenantID := fs.Int64("tenant", 0, "tenant id the token is scoped to")
	userID := fs.Int64("user", 0, "operator or service user id")
	role := fs.String("role", string(enums.OperatorRoleSystem), "picker|supervisor|admin|system")
	minutes := fs.Int("minutes", 0, "lifetime in minutes; 0 keeps WAVEPICK_JWT_EXPIRATION_MINUTES")
	if err := fs.Parse(args); err != nil {
		return err
	}

	parsedRole, err := enums.ParseOperatorRole(*role)
	if err != nil {
		return err
	}
	if *minutes < 0 {
		return fmt.Errorf("minutes must not be negative")
	}
	if *minutes > 0 {
		jwtCfg.ExpirationMinutes = *minutes
	}

	token, err := auth.MintAccessToken(jwtCfg, now, auth.AccessTokenPayload{
		TenantID: *tenantID,
		UserID:   *userID,
		Role:     parsedRole,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
