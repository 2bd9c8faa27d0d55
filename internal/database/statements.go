package database

import (
	"database/sql"
	"fmt"
)

func (s *SQLStore) prepareStmt(name, query string) (*sql.Stmt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stmt, ok := s.statements[name]; ok {
		return stmt, nil
	}

	stmt, err := s.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("prepare statement [%s]: %w", name, err)
	}

	s.statements[name] = stmt
	return stmt, nil
}

func (s *SQLStore) closeStmt() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, stmt := range s.statements {
		_ = stmt.Close()
		delete(s.statements, name)
	}
}

func (s *SQLStore) stmtSelectUser() (*sql.Stmt, error) {
	return s.prepareStmt("selectUser", `
		SELECT user_id, referrer_id, referral_count, admitted, invite_link, registered_at, admitted_at
		  FROM users
		 WHERE user_id = ?`)
}

func (s *SQLStore) stmtInsertUser() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`%s INTO users (user_id, referrer_id, registered_at) VALUES (?, ?, ?)`,
		s.dialect.insertIgnore,
	)
	return s.prepareStmt("insertUser", query)
}

func (s *SQLStore) stmtAddReferral() (*sql.Stmt, error) {
	return s.prepareStmt("addReferral",
		`UPDATE users SET referral_count = referral_count + 1 WHERE user_id = ?`)
}

func (s *SQLStore) stmtAdmitUser() (*sql.Stmt, error) {
	return s.prepareStmt("admitUser",
		`UPDATE users SET admitted = 1, admitted_at = ? WHERE user_id = ? AND admitted = 0`)
}

func (s *SQLStore) stmtRevokeUser() (*sql.Stmt, error) {
	return s.prepareStmt("revokeUser",
		`UPDATE users SET admitted = 0, admitted_at = 0, invite_link = '' WHERE user_id = ? AND admitted = 1`)
}

func (s *SQLStore) stmtReserveSlot() (*sql.Stmt, error) {
	return s.prepareStmt("reserveSlot",
		`UPDATE admission_counter SET admitted = admitted + 1 WHERE id = 1 AND admitted < ?`)
}

func (s *SQLStore) stmtReleaseSlot() (*sql.Stmt, error) {
	return s.prepareStmt("releaseSlot",
		`UPDATE admission_counter SET admitted = admitted - 1 WHERE id = 1 AND admitted > 0`)
}

func (s *SQLStore) stmtSetInviteLink() (*sql.Stmt, error) {
	return s.prepareStmt("setInviteLink",
		`UPDATE users SET invite_link = ? WHERE user_id = ?`)
}

func (s *SQLStore) stmtCountAdmitted() (*sql.Stmt, error) {
	return s.prepareStmt("countAdmitted",
		`SELECT COUNT(*) FROM users WHERE admitted = 1`)
}

func (s *SQLStore) stmtTopReferrers() (*sql.Stmt, error) {
	return s.prepareStmt("topReferrers", `
		SELECT user_id, referral_count
		  FROM users
		 ORDER BY referral_count DESC, id ASC
		 LIMIT ?`)
}
