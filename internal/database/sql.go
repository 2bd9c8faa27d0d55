package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"refgate/entity"
	"refgate/internal/config"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// SQLStore is the user registry on a relational database.
// Admission is a single transaction: the user's admitted flag and the one-row
// admission counter are updated together, the counter only while it is below
// capacity, so the admitted total can never pass the capacity.
type SQLStore struct {
	db         *sql.DB
	dialect    dialect
	statements map[string]*sql.Stmt
	mu         sync.Mutex
}

// OpenSQLite opens (creating if needed) the database file at path.
func OpenSQLite(path string) (*SQLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sql connect: %w", err)
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// sqlite has a single writer; one connection keeps the pragmas and avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err = db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	return newSQLStore(db, dialectSQLite)
}

// OpenMySQL connects to MySQL, waiting for the server to come up.
func OpenMySQL(conf config.MySql) (*SQLStore, error) {
	connectionURI := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s",
		conf.UserName, conf.Password, conf.HostName, conf.Port, conf.Database)
	db, err := sql.Open("mysql", connectionURI)
	if err != nil {
		return nil, fmt.Errorf("sql connect: %w", err)
	}

	// try to ping three times with a 30-second interval; wait for a database to start
	for i := 0; i < 3; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		if i == 2 {
			_ = db.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		time.Sleep(30 * time.Second)
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	return newSQLStore(db, dialectMySQL)
}

func newSQLStore(db *sql.DB, d dialect) (*SQLStore, error) {
	s := &SQLStore{
		db:         db,
		dialect:    d,
		statements: make(map[string]*sql.Stmt),
	}
	if err := s.applySchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) applySchema() error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("%s schema: %w", s.dialect.name, err)
		}
	}
	if _, err := s.db.Exec(s.dialect.seedCounter()); err != nil {
		return fmt.Errorf("%s seed admission counter: %w", s.dialect.name, err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.closeStmt()
	return s.db.Close()
}

func (s *SQLStore) GetUser(ctx context.Context, userId int64) (*entity.User, error) {
	stmt, err := s.stmtSelectUser()
	if err != nil {
		return nil, err
	}
	return scanUser(stmt.QueryRowContext(ctx, userId))
}

// RegisterUser inserts the user unless the identity already exists and, when
// referrerId is set, credits the referrer in the same transaction. Only the
// call that actually inserted the row reports created; a failed credit leaves
// no user row behind.
func (s *SQLStore) RegisterUser(ctx context.Context, userId, referrerId int64) (bool, error) {
	insertStmt, err := s.stmtInsertUser()
	if err != nil {
		return false, err
	}
	creditStmt, err := s.stmtAddReferral()
	if err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("register: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	referrer := sql.NullInt64{Int64: referrerId, Valid: referrerId != 0}
	res, err := tx.StmtContext(ctx, insertStmt).ExecContext(ctx, userId, referrer, time.Now().UnixMilli())
	if err != nil {
		return false, fmt.Errorf("insert user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert user: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	if referrerId != 0 {
		res, err = tx.StmtContext(ctx, creditStmt).ExecContext(ctx, referrerId)
		if err != nil {
			return false, fmt.Errorf("credit referrer: %w", err)
		}
		if err = expectOneRow(res, "credit referrer"); err != nil {
			return false, err
		}
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("register: commit: %w", err)
	}
	return true, nil
}

// CompleteReferral has nothing to do here: registration and credit commit together.
func (s *SQLStore) CompleteReferral(_ context.Context, _ int64) error {
	return nil
}

func (s *SQLStore) AddReferral(ctx context.Context, referrerId int64) error {
	stmt, err := s.stmtAddReferral()
	if err != nil {
		return err
	}
	res, err := stmt.ExecContext(ctx, referrerId)
	if err != nil {
		return fmt.Errorf("add referral: %w", err)
	}
	return expectOneRow(res, "add referral")
}

// Admit marks the user admitted and takes one admission slot in the same
// transaction. Returns entity.ErrNotFound, entity.ErrAlreadyAdmitted or
// entity.ErrCapacityExceeded without changing anything.
func (s *SQLStore) Admit(ctx context.Context, userId int64, capacity int) error {
	admitStmt, err := s.stmtAdmitUser()
	if err != nil {
		return err
	}
	reserveStmt, err := s.stmtReserveSlot()
	if err != nil {
		return err
	}
	selectStmt, err := s.stmtSelectUser()
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("admit: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// user row first, counter second: every writer takes the locks in this order
	res, err := tx.StmtContext(ctx, admitStmt).ExecContext(ctx, time.Now().UnixMilli(), userId)
	if err != nil {
		return fmt.Errorf("admit user: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("admit user: %w", err)
	} else if n == 0 {
		if _, err = scanUser(tx.StmtContext(ctx, selectStmt).QueryRowContext(ctx, userId)); err != nil {
			return err
		}
		return entity.ErrAlreadyAdmitted
	}

	res, err = tx.StmtContext(ctx, reserveStmt).ExecContext(ctx, capacity)
	if err != nil {
		return fmt.Errorf("reserve slot: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("reserve slot: %w", err)
	} else if n == 0 {
		return entity.ErrCapacityExceeded
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("admit: commit: %w", err)
	}
	return nil
}

// RevokeAdmission undoes Admit for a user whose invite could not be issued.
func (s *SQLStore) RevokeAdmission(ctx context.Context, userId int64) error {
	revokeStmt, err := s.stmtRevokeUser()
	if err != nil {
		return err
	}
	releaseStmt, err := s.stmtReleaseSlot()
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("revoke: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.StmtContext(ctx, revokeStmt).ExecContext(ctx, userId)
	if err != nil {
		return fmt.Errorf("revoke user: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("revoke user: %w", err)
	} else if n == 0 {
		return nil
	}
	if _, err = tx.StmtContext(ctx, releaseStmt).ExecContext(ctx); err != nil {
		return fmt.Errorf("release slot: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("revoke: commit: %w", err)
	}
	return nil
}

func (s *SQLStore) SetInviteLink(ctx context.Context, userId int64, link string) error {
	stmt, err := s.stmtSetInviteLink()
	if err != nil {
		return err
	}
	// MySQL reports zero affected rows for an unchanged value, so the count is not checked
	if _, err = stmt.ExecContext(ctx, link, userId); err != nil {
		return fmt.Errorf("set invite link: %w", err)
	}
	return nil
}

func (s *SQLStore) CountAdmitted(ctx context.Context) (int64, error) {
	stmt, err := s.stmtCountAdmitted()
	if err != nil {
		return 0, err
	}
	var count int64
	if err = stmt.QueryRowContext(ctx).Scan(&count); err != nil {
		return 0, fmt.Errorf("count admitted: %w", err)
	}
	return count, nil
}

// TopReferrers orders by referral count, earlier registrations first on ties.
func (s *SQLStore) TopReferrers(ctx context.Context, limit int) ([]entity.Referrer, error) {
	stmt, err := s.stmtTopReferrers()
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("top referrers: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	referrers := make([]entity.Referrer, 0, limit)
	for rows.Next() {
		var r entity.Referrer
		if err = rows.Scan(&r.UserId, &r.ReferralCount); err != nil {
			return nil, fmt.Errorf("top referrers: %w", err)
		}
		referrers = append(referrers, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("top referrers: %w", err)
	}
	return referrers, nil
}

func scanUser(row *sql.Row) (*entity.User, error) {
	var user entity.User
	var referrer sql.NullInt64
	var registeredAt, admittedAt int64
	err := row.Scan(
		&user.UserId,
		&referrer,
		&user.ReferralCount,
		&user.Admitted,
		&user.InviteLink,
		&registeredAt,
		&admittedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	if referrer.Valid {
		user.ReferrerId = referrer.Int64
	}
	user.RegisteredAt = time.UnixMilli(registeredAt)
	if admittedAt > 0 {
		user.AdmittedAt = time.UnixMilli(admittedAt)
	}
	return &user, nil
}

func expectOneRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return entity.ErrNotFound
	}
	return nil
}
