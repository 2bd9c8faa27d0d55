package database

import "fmt"

// dialect holds the few statements that differ between MySQL and SQLite.
type dialect struct {
	name         string
	insertIgnore string
	schema       []string
}

var dialectSQLite = dialect{
	name:         "sqlite",
	insertIgnore: "INSERT OR IGNORE",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL UNIQUE,
			referrer_id INTEGER NULL,
			referral_count INTEGER NOT NULL DEFAULT 0,
			admitted INTEGER NOT NULL DEFAULT 0,
			invite_link TEXT NOT NULL DEFAULT '',
			registered_at INTEGER NOT NULL DEFAULT 0,
			admitted_at INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_leaderboard ON users (referral_count DESC, id ASC)`,
		`CREATE INDEX IF NOT EXISTS idx_users_admitted ON users (admitted)`,
		`CREATE TABLE IF NOT EXISTS admission_counter (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			admitted INTEGER NOT NULL DEFAULT 0
		)`,
	},
}

var dialectMySQL = dialect{
	name:         "mysql",
	insertIgnore: "INSERT IGNORE",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT NOT NULL AUTO_INCREMENT,
			user_id BIGINT NOT NULL,
			referrer_id BIGINT NULL,
			referral_count INT NOT NULL DEFAULT 0,
			admitted TINYINT(1) NOT NULL DEFAULT 0,
			invite_link VARCHAR(255) NOT NULL DEFAULT '',
			registered_at BIGINT NOT NULL DEFAULT 0,
			admitted_at BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (id),
			UNIQUE KEY uq_users_user_id (user_id),
			KEY idx_users_leaderboard (referral_count, id),
			KEY idx_users_admitted (admitted)
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS admission_counter (
			id TINYINT NOT NULL,
			admitted INT NOT NULL DEFAULT 0,
			PRIMARY KEY (id)
		) ENGINE=InnoDB`,
	},
}

// seedCounter creates the single counter row from the exact admitted count.
// An existing row is left untouched.
func (d dialect) seedCounter() string {
	return fmt.Sprintf(
		`%s INTO admission_counter (id, admitted) SELECT 1, COUNT(*) FROM users WHERE admitted = 1`,
		d.insertIgnore,
	)
}
