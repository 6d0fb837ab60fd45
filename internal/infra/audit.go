package infra

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Ensure sqlcipher driver is registered.
	_ "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/eliteGoblin/ccguard/internal/domain"
)

const auditDBName = "audit.db"

// SQLAuditJournal implements domain.AuditJournal using a SQLCipher
// encrypted SQLite database. Journal failures are the caller's to ignore:
// auditing must never fail the operation being recorded.
type SQLAuditJournal struct {
	db     *sql.DB
	dbPath string
}

// NewSQLAuditJournal opens (or creates) the encrypted audit database in
// dataDir. The key is used as the SQLCipher passphrase via PRAGMA key.
func NewSQLAuditJournal(dataDir string, key []byte) (*SQLAuditJournal, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, auditDBName)
	keyHex := hex.EncodeToString(key)

	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, keyHex)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	// Verify encryption works by running a query.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to audit database: %w", err)
	}

	j := &SQLAuditJournal{db: db, dbPath: dbPath}
	if err := j.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create audit tables: %w", err)
	}
	return j, nil
}

func (j *SQLAuditJournal) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS operations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		op TEXT NOT NULL,
		target TEXT NOT NULL DEFAULT '',
		success INTEGER NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		logged_at INTEGER NOT NULL
	);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Record appends one operation record.
func (j *SQLAuditJournal) Record(op string, target string, success bool, detail string) error {
	succ := 0
	if success {
		succ = 1
	}
	_, err := j.db.Exec(`
		INSERT INTO operations (op, target, success, detail, logged_at)
		VALUES (?, ?, ?, ?, ?)`,
		op, target, succ, detail, time.Now().Unix(),
	)
	return err
}

// Recent returns up to limit records, newest first.
func (j *SQLAuditJournal) Recent(limit int) ([]domain.AuditRecord, error) {
	rows, err := j.db.Query(`
		SELECT id, op, target, success, detail, logged_at
		FROM operations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.AuditRecord
	for rows.Next() {
		var r domain.AuditRecord
		var succ int
		if err := rows.Scan(&r.ID, &r.Op, &r.Target, &succ, &r.Detail, &r.LoggedAt); err != nil {
			return nil, err
		}
		r.Success = succ == 1
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close releases the database connection.
func (j *SQLAuditJournal) Close() error {
	return j.db.Close()
}

// Ensure SQLAuditJournal implements domain.AuditJournal.
var _ domain.AuditJournal = (*SQLAuditJournal)(nil)
