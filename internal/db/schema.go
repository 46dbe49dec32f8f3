package db

import "database/sql"

func Migrate(db *sql.DB) {
	db.Exec(`
	CREATE TABLE IF NOT EXISTS settlements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		player_id TEXT,
		kind TEXT,
		round_id TEXT,
		tx_id TEXT,
		amount REAL,
		status TEXT,
		ts INTEGER
	);`)

	db.Exec(`
	CREATE TABLE IF NOT EXISTS incidents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		player_id TEXT,
		round_id TEXT,
		detail TEXT,
		ts INTEGER
	);`)
}
