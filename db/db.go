package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"
)

const schema = `
CREATE TABLE IF NOT EXISTS user (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT UNIQUE NOT NULL,
	email TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS invitation (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES user(id),
	event_name TEXT NOT NULL,
	event_date DATE NOT NULL,
	image_path TEXT,
	description TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL,
	theme TEXT NOT NULL DEFAULT '',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_invitation_user_id ON invitation(user_id);

CREATE TABLE IF NOT EXISTS guest (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	invitation_id INTEGER NOT NULL REFERENCES invitation(id),
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	rsvp TEXT NOT NULL DEFAULT 'pending' CHECK (rsvp IN ('pending', 'accepted', 'declined')),
	rsvp_date DATETIME,
	CHECK ((rsvp = 'pending') = (rsvp_date IS NULL))
);

CREATE INDEX IF NOT EXISTS idx_guest_invitation_id ON guest(invitation_id);
`

// Open connects to the sqlite database at path and creates the schema.
// Foreign keys are enforced, but nothing cascades: deleting an invitation
// requires removing its guests first.
func Open(path string) (*sql.DB, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
	}
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if err := Migrate(context.Background(), conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func Migrate(ctx context.Context, conn *sql.DB) error {
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("error creating tables: %w", err)
	}
	return nil
}

// Reset drops every table and recreates the schema.
func Reset(ctx context.Context, conn *sql.DB) error {
	for _, table := range []string{"guest", "invitation", "user"} {
		if _, err := conn.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	return Migrate(ctx, conn)
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares in constant time via bcrypt.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// DummyHash is compared against when a username does not exist so that
// failed logins take the same time either way.
var DummyHash = func() string {
	h, err := HashPassword("evite-dummy-password")
	if err != nil {
		panic(fmt.Sprintf("bcrypt unavailable: %v", err))
	}
	return h
}()
