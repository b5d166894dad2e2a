// Package services contains the bot's business logic: registration, the
// access gate, verification grants, file delivery and ephemeral cleanup.
package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/filegate/internal/dbx"
	"github.com/dmitrijs2005/filegate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filegate/internal/timex"
)

// UserService registers accounts that talk to the bot.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	clock       timex.Clock
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, clock timex.Clock) *UserService {
	return &UserService{db: db, repomanager: m, clock: clock}
}

// Register records the user and makes sure an (empty) settings row exists
// for them, so files they own later always resolve settings. It reports
// whether the user was seen for the first time.
func (s *UserService) Register(ctx context.Context, userID int64) (bool, error) {
	var isNew bool
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		isNew, err = s.repomanager.Users(tx).Touch(ctx, userID, s.clock())
		if err != nil {
			return fmt.Errorf("error touching user: %w", err)
		}
		if err := s.repomanager.Settings(tx).EnsureDefaults(ctx, userID); err != nil {
			return fmt.Errorf("error creating settings: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return isNew, nil
}
