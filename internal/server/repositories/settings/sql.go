package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filegate/internal/common"
	"github.com/dmitrijs2005/filegate/internal/dbx"
	"github.com/dmitrijs2005/filegate/internal/server/models"
)

// columns whitelists the fields Update may touch; field names are
// interpolated into SQL, so nothing else may reach the query.
var columns = map[string]string{
	models.SettingFSubChannel:     "fsub_channel",
	models.SettingFilenameURL:     "filename_url",
	models.SettingShortenerURL:    "shortener_url",
	models.SettingShortenerAPIKey: "shortener_api_key",
}

type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

func (r *SQLRepository) Get(ctx context.Context, ownerID int64) (*models.OwnerSettings, error) {
	query :=
		`SELECT owner_id, fsub_channel, filename_url, shortener_url, shortener_api_key
		 FROM owner_settings
		 WHERE owner_id = ?
		 `

	var (
		s                               models.OwnerSettings
		fsub                            sql.NullInt64
		filenameURL, shortURL, shortKey sql.NullString
	)

	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), ownerID).
		Scan(&s.OwnerID, &fsub, &filenameURL, &shortURL, &shortKey)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if fsub.Valid {
		s.FSubChannel = &fsub.Int64
	}
	s.FilenameURL = nullString(filenameURL)
	s.ShortenerURL = nullString(shortURL)
	s.ShortenerAPIKey = nullString(shortKey)

	return &s, nil
}

func (r *SQLRepository) Update(ctx context.Context, ownerID int64, field string, value any) error {
	col, ok := columns[field]
	if !ok {
		return fmt.Errorf("%w: %q", common.ErrorUnknownSetting, field)
	}

	query := fmt.Sprintf(
		`INSERT INTO owner_settings (owner_id, %[1]s)
		 VALUES (?, ?)
		 ON CONFLICT (owner_id) DO UPDATE SET %[1]s = excluded.%[1]s
		 `, col)

	if _, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), ownerID, value); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) EnsureDefaults(ctx context.Context, ownerID int64) error {
	query :=
		`INSERT INTO owner_settings (owner_id)
		 VALUES (?)
		 ON CONFLICT (owner_id) DO NOTHING
		 `

	if _, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), ownerID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
