package db

import (
	"database/sql"
	"log"

	_ "github.com/mattn/go-sqlite3"
)

func Init(path string) *sql.DB {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		log.Fatal("open audit db: ", err)
	}
	Migrate(db)
	return db
}
