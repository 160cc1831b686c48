package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates the two tables the service needs.  Statements are
// idempotent so Migrate can run on every start.  Seat timestamps keep
// microseconds so a seat created just before midnight is not rounded into
// the next day.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		vendor      INT             NOT NULL,
		unique_id   VARCHAR(191)    NOT NULL,
		user_status INT             NOT NULL DEFAULT 1,
		created_at  DATETIME        NOT NULL,
		updated_at  DATETIME        NOT NULL,
		deleted_at  DATETIME        NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_users_vendor_unique_id (vendor, unique_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS seats (
		id                     BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		giver_id               BIGINT UNSIGNED NOT NULL,
		taker_id               BIGINT UNSIGNED NULL,
		taken_at               DATETIME(6)     NULL,
		seat_status            INT             NOT NULL DEFAULT 1,
		leave_at               DATETIME(6)     NOT NULL,
		cafe_name              VARCHAR(255)    NOT NULL,
		space_kakao_map_id     VARCHAR(64)     NOT NULL,
		address                VARCHAR(255)    NOT NULL,
		lat                    DOUBLE          NOT NULL,
		lng                    DOUBLE          NOT NULL,
		have_plug              TINYINT(1)      NOT NULL DEFAULT 0,
		thumbnail_url          VARCHAR(1024)   NULL,
		description_seat       TEXT            NOT NULL,
		description_giver      TEXT            NULL,
		description_close_time DATETIME(6)     NULL,
		created_at             DATETIME(6)     NOT NULL,
		updated_at             DATETIME(6)     NOT NULL,
		deleted_at             DATETIME(6)     NULL,
		PRIMARY KEY (id),
		KEY idx_seats_giver (giver_id),
		KEY idx_seats_available (seat_status, created_at, leave_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate applies the schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
