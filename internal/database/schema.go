package database

import (
	"context"
	"database/sql"
	"fmt"
)

// The occupancy table holds one row per claimed seat.  Its primary key is
// what makes a double claim impossible even if two writers slipped past the
// show lock; the foreign key to bookings lets a booking delete cascade to
// its seats.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS movies (
		id                VARCHAR(64)  NOT NULL PRIMARY KEY,
		title             VARCHAR(255) NOT NULL,
		overview          TEXT         NOT NULL,
		poster_path       VARCHAR(255) NOT NULL DEFAULT '',
		backdrop_path     VARCHAR(255) NOT NULL DEFAULT '',
		genres            JSON         NOT NULL,
		release_date      VARCHAR(10)  NOT NULL DEFAULT '',
		original_language VARCHAR(16)  NOT NULL DEFAULT '',
		tagline           VARCHAR(255) NOT NULL DEFAULT '',
		vote_average      DOUBLE       NOT NULL DEFAULT 0,
		runtime           INT UNSIGNED NOT NULL DEFAULT 0,
		created_at        DATETIME(3)  NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS shows (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		movie_id    VARCHAR(64)     NOT NULL,
		starts_at   DATETIME(3)     NOT NULL,
		price_cents BIGINT UNSIGNED NOT NULL,
		created_at  DATETIME(3)     NOT NULL,
		KEY idx_shows_movie_starts (movie_id, starts_at),
		CONSTRAINT fk_shows_movie FOREIGN KEY (movie_id) REFERENCES movies (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id      VARCHAR(128)    NOT NULL,
		show_id      BIGINT UNSIGNED NOT NULL,
		booked_seats JSON            NOT NULL,
		amount_cents BIGINT UNSIGNED NOT NULL,
		is_paid      TINYINT(1)      NOT NULL DEFAULT 0,
		payment_link VARCHAR(2048)   NOT NULL DEFAULT '',
		paid_at      DATETIME(3)     NULL,
		created_at   DATETIME(3)     NOT NULL,
		KEY idx_bookings_user (user_id, created_at),
		KEY idx_bookings_show (show_id),
		CONSTRAINT fk_bookings_show FOREIGN KEY (show_id) REFERENCES shows (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS show_occupied_seats (
		show_id    BIGINT UNSIGNED NOT NULL,
		seat_label VARCHAR(8)      NOT NULL,
		user_id    VARCHAR(128)    NOT NULL,
		booking_id BIGINT UNSIGNED NOT NULL,
		PRIMARY KEY (show_id, seat_label),
		KEY idx_occupied_booking (booking_id),
		CONSTRAINT fk_occupied_show FOREIGN KEY (show_id) REFERENCES shows (id) ON DELETE CASCADE,
		CONSTRAINT fk_occupied_booking FOREIGN KEY (booking_id) REFERENCES bookings (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS favorites (
		user_id    VARCHAR(128) NOT NULL,
		movie_id   VARCHAR(64)  NOT NULL,
		created_at DATETIME(3)  NOT NULL,
		PRIMARY KEY (user_id, movie_id),
		CONSTRAINT fk_favorites_movie FOREIGN KEY (movie_id) REFERENCES movies (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the tables the service needs when they do not exist yet.
// Statements run one by one because the driver does not enable
// multiStatements.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
