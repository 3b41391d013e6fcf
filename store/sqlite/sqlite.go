/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements every persistence interface of the portal with one SQLite
  database, so a single Store value is handed to the ledger, the request
  services, the attendance classifier and the approver directory.

INTERFACES IMPLEMENTED:
  generic.Store:               Ledger transactions
  generic.AuditLog:            Audit entries
  leave.Repository:            Leave requests
  regularization.Repository:   Regularization requests (via Regularizations())
  employee.Directory:          Employee records and approver lookup
  attendance.EventStore:       Daily clock events
  attendance.HolidayCalendar:  Holiday dates

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on transactions or audit_entries
  - No DELETE statements anywhere
  - Corrections via reversal transactions only

KEY TABLES:
  transactions:     Immutable ledger of all balance changes
  audit_entries:    Who did what when
  leave_requests:   Leave requests with remarks as JSON
  regularizations:  Attendance corrections with remarks as JSON
  employees:        Directory records
  holidays:         Company holiday calendar
  clock_events:     One row per employee and attendance day

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. Locked methods never call other
  locked methods.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/attendance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := generic.NewBalanceLedger(store, clock)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - generic/store.go: Store and AuditLog
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lavkush9051/attendance-app/attendance"
	"github.com/lavkush9051/attendance-app/employee"
	"github.com/lavkush9051/attendance-app/generic"
	"github.com/lavkush9051/attendance-app/leave"
	"github.com/lavkush9051/attendance-app/regularization"
	"github.com/lavkush9051/attendance-app/shift"
	_ "github.com/mattn/go-sqlite3"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to ":memory:" opens its own empty database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Transactions (append-only ledger)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		entity_id INTEGER NOT NULL,
		resource_type TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		delta_value TEXT NOT NULL,
		delta_unit TEXT NOT NULL,
		reference_id TEXT,
		reason TEXT,
		idempotency_key TEXT UNIQUE,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_entity_resource
		ON transactions(entity_id, resource_type);
	CREATE INDEX IF NOT EXISTS idx_transactions_reference
		ON transactions(reference_id) WHERE reference_id IS NOT NULL;

	-- Audit entries (append-only)
	CREATE TABLE IF NOT EXISTS audit_entries (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		actor_id INTEGER NOT NULL,
		action TEXT NOT NULL,
		entity_id INTEGER NOT NULL,
		subject TEXT,
		payload_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_entries(entity_id);
	CREATE INDEX IF NOT EXISTS idx_audit_subject ON audit_entries(subject);

	-- Leave requests
	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		emp_id INTEGER NOT NULL,
		leave_type TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		days TEXT NOT NULL,
		reason TEXT,
		applied_date TEXT NOT NULL,
		status TEXT NOT NULL,
		l1_officer_id INTEGER NOT NULL,
		l2_officer_id INTEGER NOT NULL DEFAULT 0,
		remarks_json TEXT NOT NULL DEFAULT '[]',
		attachment_ref TEXT,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leave_emp_dates
		ON leave_requests(emp_id, start_date, end_date);
	CREATE INDEX IF NOT EXISTS idx_leave_status ON leave_requests(status);

	-- Regularization requests
	CREATE TABLE IF NOT EXISTS regularizations (
		id TEXT PRIMARY KEY,
		emp_id INTEGER NOT NULL,
		date TEXT NOT NULL,
		clock_in TEXT NOT NULL,
		clock_out TEXT,
		shift TEXT NOT NULL,
		reg_type TEXT NOT NULL,
		reason TEXT,
		status TEXT NOT NULL,
		l1_officer_id INTEGER NOT NULL,
		l2_officer_id INTEGER NOT NULL DEFAULT 0,
		remarks_json TEXT NOT NULL DEFAULT '[]',
		applied_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_regularizations_emp_date
		ON regularizations(emp_id, date);

	-- Employees
	CREATE TABLE IF NOT EXISTS employees (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		week_off_day TEXT NOT NULL,
		designation TEXT
	);

	-- Holidays
	CREATE TABLE IF NOT EXISTS holidays (
		date TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);

	-- Clock events (one per employee and attendance day)
	CREATE TABLE IF NOT EXISTS clock_events (
		emp_id INTEGER NOT NULL,
		date TEXT NOT NULL,
		clock_in TEXT,
		clock_out TEXT,
		PRIMARY KEY (emp_id, date)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTION STORE (generic.Store)
// =============================================================================

// Append persists a transaction.
func (s *Store) Append(ctx context.Context, tx generic.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.appendTx(ctx, s.db, tx)
}

func (s *Store) appendTx(ctx context.Context, exec interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}, tx generic.Transaction) error {
	query := `
		INSERT INTO transactions (id, entity_id, resource_type, tx_type, delta_value, delta_unit,
			reference_id, reason, idempotency_key, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := exec.ExecContext(ctx, query,
		string(tx.ID),
		int64(tx.EntityID),
		tx.ResourceType.ResourceID(),
		string(tx.Type),
		tx.Delta.Value.String(),
		string(tx.Delta.Unit),
		nullString(tx.ReferenceID),
		nullString(tx.Reason),
		nullString(tx.IdempotencyKey),
		nullString(tx.CreatedBy),
		tx.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if isUniqueConstraintError(err) {
		return generic.ErrDuplicateIdempotencyKey
	}
	return err
}

// AppendBatch persists multiple transactions atomically.
func (s *Store) AppendBatch(ctx context.Context, txs []generic.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbTx.Rollback()

	for _, tx := range txs {
		if err := s.appendTx(ctx, dbTx, tx); err != nil {
			return err
		}
	}

	return dbTx.Commit()
}

// Load returns all transactions of one bucket in insertion order.
func (s *Store) Load(ctx context.Context, key generic.BalanceKey) ([]generic.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, entity_id, resource_type, tx_type, delta_value, delta_unit,
			reference_id, reason, idempotency_key, created_by, created_at
		FROM transactions
		WHERE entity_id = ? AND resource_type = ?
		ORDER BY rowid ASC
	`

	return s.queryTransactions(ctx, query, int64(key.EntityID), key.Resource.ResourceID())
}

// LoadByEntity returns every transaction of an entity in insertion order.
func (s *Store) LoadByEntity(ctx context.Context, entityID generic.EntityID) ([]generic.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, entity_id, resource_type, tx_type, delta_value, delta_unit,
			reference_id, reason, idempotency_key, created_by, created_at
		FROM transactions
		WHERE entity_id = ?
		ORDER BY rowid ASC
	`

	return s.queryTransactions(ctx, query, int64(entityID))
}

// Exists checks if an idempotency key was already written.
func (s *Store) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE idempotency_key = ?",
		idempotencyKey,
	).Scan(&count)

	return count > 0, err
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]generic.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []generic.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}

	return txs, rows.Err()
}

func scanTransaction(rows *sql.Rows) (generic.Transaction, error) {
	var tx generic.Transaction
	var id, resourceType, txType, deltaValue, deltaUnit, createdAt string
	var entityID int64
	var referenceID, reason, idempotencyKey, createdBy sql.NullString

	err := rows.Scan(
		&id, &entityID, &resourceType, &txType, &deltaValue, &deltaUnit,
		&referenceID, &reason, &idempotencyKey, &createdBy, &createdAt,
	)
	if err != nil {
		return tx, err
	}

	delta, err := parseAmount(deltaValue, deltaUnit)
	if err != nil {
		return tx, fmt.Errorf("transaction %s: %w", id, err)
	}

	tx.ID = generic.TransactionID(id)
	tx.EntityID = generic.EntityID(entityID)
	tx.ResourceType = generic.GetOrCreateResource(resourceType)
	tx.Type = generic.TransactionType(txType)
	tx.Delta = delta
	tx.ReferenceID = referenceID.String
	tx.Reason = reason.String
	tx.IdempotencyKey = idempotencyKey.String
	tx.CreatedBy = createdBy.String
	tx.CreatedAt = parseTime(createdAt)

	return tx, nil
}

// =============================================================================
// AUDIT LOG (generic.AuditLog)
// =============================================================================

// auditLog adapts the audit methods to generic.AuditLog, whose Append
// would otherwise clash with the transaction Append.
type auditLog struct{ s *Store }

// AuditLog returns the audit log view of the store.
func (s *Store) AuditLog() generic.AuditLog { return auditLog{s} }

func (a auditLog) Append(ctx context.Context, e generic.AuditEntry) error {
	return a.s.AppendAudit(ctx, e)
}

func (a auditLog) Query(ctx context.Context, f generic.AuditFilter) ([]generic.AuditEntry, error) {
	return a.s.QueryAudit(ctx, f)
}

// AppendAudit persists an audit entry.
func (s *Store) AppendAudit(ctx context.Context, e generic.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode audit payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_entries (id, timestamp, actor_id, action, entity_id, subject, payload_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID,
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		int64(e.ActorID),
		string(e.Action),
		int64(e.EntityID),
		nullString(e.Subject),
		string(payload),
	)
	return err
}

// QueryAudit returns matching audit entries oldest first.
func (s *Store) QueryAudit(ctx context.Context, f generic.AuditFilter) ([]generic.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var where []string
	var args []any
	if f.EntityID != nil {
		where = append(where, "entity_id = ?")
		args = append(args, int64(*f.EntityID))
	}
	if f.ActorID != nil {
		where = append(where, "actor_id = ?")
		args = append(args, int64(*f.ActorID))
	}
	if f.Subject != "" {
		where = append(where, "subject = ?")
		args = append(args, f.Subject)
	}
	if len(f.Actions) > 0 {
		marks := make([]string, len(f.Actions))
		for i, a := range f.Actions {
			marks[i] = "?"
			args = append(args, string(a))
		}
		where = append(where, "action IN ("+strings.Join(marks, ", ")+")")
	}

	query := "SELECT id, timestamp, actor_id, action, entity_id, subject, payload_json FROM audit_entries"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY rowid ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []generic.AuditEntry
	for rows.Next() {
		var e generic.AuditEntry
		var ts, action string
		var actorID, entityID int64
		var subject, payload sql.NullString
		if err := rows.Scan(&e.ID, &ts, &actorID, &action, &entityID, &subject, &payload); err != nil {
			return nil, err
		}
		e.Timestamp = parseTime(ts)
		e.ActorID = generic.EntityID(actorID)
		e.Action = generic.AuditAction(action)
		e.EntityID = generic.EntityID(entityID)
		e.Subject = subject.String
		if payload.Valid && payload.String != "" && payload.String != "null" {
			if err := json.Unmarshal([]byte(payload.String), &e.Payload); err != nil {
				return nil, fmt.Errorf("audit entry %s: %w", e.ID, err)
			}
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// =============================================================================
// LEAVE REQUEST STORE (leave.Repository)
// =============================================================================

const leaveColumns = `id, emp_id, leave_type, start_date, end_date, days, reason, applied_date,
	status, l1_officer_id, l2_officer_id, remarks_json, attachment_ref, updated_at`

// Create inserts a new leave request.
func (s *Store) Create(ctx context.Context, r leave.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	remarks, err := encodeRemarks(r.Remarks)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO leave_requests (`+leaveColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID,
		int64(r.EmployeeID),
		string(r.Type),
		r.Period.Start.String(),
		r.Period.End.String(),
		r.Days.Value.String(),
		nullString(r.Reason),
		r.AppliedDate.String(),
		string(r.Status),
		int64(r.L1OfficerID),
		int64(r.L2OfficerID),
		remarks,
		nullString(r.AttachmentRef),
		r.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("leave request %s already exists", r.ID)
	}
	return err
}

// Update saves the mutable fields of a leave request.
func (s *Store) Update(ctx context.Context, r leave.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	remarks, err := encodeRemarks(r.Remarks)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE leave_requests
		SET status = ?, l2_officer_id = ?, remarks_json = ?, updated_at = ?
		WHERE id = ?
	`,
		string(r.Status),
		int64(r.L2OfficerID),
		remarks,
		r.UpdatedAt.UTC().Format(time.RFC3339Nano),
		r.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res, "leave request", r.ID)
}

// Get retrieves a leave request by ID.
func (s *Store) Get(ctx context.Context, id string) (leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reqs, err := s.queryLeave(ctx, "SELECT "+leaveColumns+" FROM leave_requests WHERE id = ?", id)
	if err != nil {
		return leave.Request{}, err
	}
	if len(reqs) == 0 {
		return leave.Request{}, fmt.Errorf("leave request %s: %w", id, generic.ErrNotFound)
	}
	return reqs[0], nil
}

// ListByEmployee returns an employee's leave requests by start date.
func (s *Store) ListByEmployee(ctx context.Context, empID generic.EntityID) ([]leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryLeave(ctx, `
		SELECT `+leaveColumns+` FROM leave_requests
		WHERE emp_id = ?
		ORDER BY start_date ASC, rowid ASC
	`, int64(empID))
}

// ListPendingFor returns leave requests waiting on the officer.
func (s *Store) ListPendingFor(ctx context.Context, officer generic.EntityID) ([]leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryLeave(ctx, `
		SELECT `+leaveColumns+` FROM leave_requests
		WHERE (status = ? AND l1_officer_id = ?) OR (status = ? AND l2_officer_id = ?)
		ORDER BY start_date ASC, rowid ASC
	`, string(generic.StatePending), int64(officer), string(generic.StateL1Approved), int64(officer))
}

// ListApproved returns approved leave of the employee overlapping p.
func (s *Store) ListApproved(ctx context.Context, empID generic.EntityID, p generic.Period) ([]leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryLeave(ctx, `
		SELECT `+leaveColumns+` FROM leave_requests
		WHERE emp_id = ? AND status = ? AND start_date <= ? AND end_date >= ?
		ORDER BY start_date ASC, rowid ASC
	`, int64(empID), string(generic.StateApproved), p.End.String(), p.Start.String())
}

func (s *Store) queryLeave(ctx context.Context, query string, args ...any) ([]leave.Request, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []leave.Request
	for rows.Next() {
		var r leave.Request
		var empID, l1, l2 int64
		var typ, start, end, days, applied, status, remarks, updatedAt string
		var reason, attachment sql.NullString
		if err := rows.Scan(
			&r.ID, &empID, &typ, &start, &end, &days, &reason, &applied,
			&status, &l1, &l2, &remarks, &attachment, &updatedAt,
		); err != nil {
			return nil, err
		}

		if r.Type, err = leave.ParseType(typ); err != nil {
			return nil, fmt.Errorf("leave request %s: %w", r.ID, err)
		}
		if r.Period.Start, err = generic.ParseDate(start); err != nil {
			return nil, fmt.Errorf("leave request %s: %w", r.ID, err)
		}
		if r.Period.End, err = generic.ParseDate(end); err != nil {
			return nil, fmt.Errorf("leave request %s: %w", r.ID, err)
		}
		if r.Days, err = parseAmount(days, string(generic.UnitDays)); err != nil {
			return nil, fmt.Errorf("leave request %s: %w", r.ID, err)
		}
		if r.Remarks, err = decodeRemarks(remarks); err != nil {
			return nil, fmt.Errorf("leave request %s: %w", r.ID, err)
		}
		r.AppliedDate, _ = generic.ParseDate(applied)
		r.EmployeeID = generic.EntityID(empID)
		r.Reason = reason.String
		r.Status = generic.State(status)
		r.L1OfficerID = generic.EntityID(l1)
		r.L2OfficerID = generic.EntityID(l2)
		r.AttachmentRef = attachment.String
		r.UpdatedAt = parseTime(updatedAt)

		reqs = append(reqs, r)
	}

	return reqs, rows.Err()
}

// =============================================================================
// REGULARIZATION STORE (regularization.Repository)
// =============================================================================

// Regularizations is the regularization.Repository view of the store. Its
// method names overlap those of the leave repository.
type Regularizations struct{ s *Store }

func (s *Store) Regularizations() Regularizations { return Regularizations{s} }

const regularizationColumns = `id, emp_id, date, clock_in, clock_out, shift, reg_type, reason,
	status, l1_officer_id, l2_officer_id, remarks_json, applied_at, updated_at`

func (g Regularizations) Create(ctx context.Context, r regularization.Request) error {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()

	remarks, err := encodeRemarks(r.Remarks)
	if err != nil {
		return err
	}
	var clockOut sql.NullString
	if r.ClockOut != nil {
		clockOut = nullString(r.ClockOut.String())
	}

	_, err = g.s.db.ExecContext(ctx, `
		INSERT INTO regularizations (`+regularizationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID,
		int64(r.EmployeeID),
		r.Date.String(),
		r.ClockIn.String(),
		clockOut,
		string(r.Shift),
		string(r.Type),
		nullString(r.Reason),
		string(r.Status),
		int64(r.L1OfficerID),
		int64(r.L2OfficerID),
		remarks,
		r.AppliedAt.UTC().Format(time.RFC3339Nano),
		r.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("regularization %s already exists", r.ID)
	}
	return err
}

func (g Regularizations) Update(ctx context.Context, r regularization.Request) error {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()

	remarks, err := encodeRemarks(r.Remarks)
	if err != nil {
		return err
	}

	res, err := g.s.db.ExecContext(ctx, `
		UPDATE regularizations
		SET status = ?, l2_officer_id = ?, remarks_json = ?, updated_at = ?
		WHERE id = ?
	`,
		string(r.Status),
		int64(r.L2OfficerID),
		remarks,
		r.UpdatedAt.UTC().Format(time.RFC3339Nano),
		r.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res, "regularization", r.ID)
}

func (g Regularizations) Get(ctx context.Context, id string) (regularization.Request, error) {
	g.s.mu.RLock()
	defer g.s.mu.RUnlock()

	reqs, err := g.query(ctx, "SELECT "+regularizationColumns+" FROM regularizations WHERE id = ?", id)
	if err != nil {
		return regularization.Request{}, err
	}
	if len(reqs) == 0 {
		return regularization.Request{}, fmt.Errorf("regularization %s: %w", id, generic.ErrNotFound)
	}
	return reqs[0], nil
}

func (g Regularizations) ListByEmployee(ctx context.Context, empID generic.EntityID) ([]regularization.Request, error) {
	g.s.mu.RLock()
	defer g.s.mu.RUnlock()

	return g.query(ctx, `
		SELECT `+regularizationColumns+` FROM regularizations
		WHERE emp_id = ?
		ORDER BY date ASC, applied_at ASC
	`, int64(empID))
}

func (g Regularizations) ListPendingFor(ctx context.Context, officer generic.EntityID) ([]regularization.Request, error) {
	g.s.mu.RLock()
	defer g.s.mu.RUnlock()

	return g.query(ctx, `
		SELECT `+regularizationColumns+` FROM regularizations
		WHERE (status = ? AND l1_officer_id = ?) OR (status = ? AND l2_officer_id = ?)
		ORDER BY date ASC, applied_at ASC
	`, string(generic.StatePending), int64(officer), string(generic.StateL1Approved), int64(officer))
}

func (g Regularizations) query(ctx context.Context, query string, args ...any) ([]regularization.Request, error) {
	rows, err := g.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []regularization.Request
	for rows.Next() {
		var r regularization.Request
		var empID, l1, l2 int64
		var date, clockIn, label, typ, status, remarks, appliedAt, updatedAt string
		var clockOut, reason sql.NullString
		if err := rows.Scan(
			&r.ID, &empID, &date, &clockIn, &clockOut, &label, &typ, &reason,
			&status, &l1, &l2, &remarks, &appliedAt, &updatedAt,
		); err != nil {
			return nil, err
		}

		if r.Date, err = generic.ParseDate(date); err != nil {
			return nil, fmt.Errorf("regularization %s: %w", r.ID, err)
		}
		if r.ClockIn, err = shift.ParseClock(clockIn); err != nil {
			return nil, fmt.Errorf("regularization %s: %w", r.ID, err)
		}
		if clockOut.Valid {
			out, err := shift.ParseClock(clockOut.String)
			if err != nil {
				return nil, fmt.Errorf("regularization %s: %w", r.ID, err)
			}
			r.ClockOut = &out
		}
		if r.Remarks, err = decodeRemarks(remarks); err != nil {
			return nil, fmt.Errorf("regularization %s: %w", r.ID, err)
		}
		r.EmployeeID = generic.EntityID(empID)
		r.Shift = shift.Label(label)
		r.Type = regularization.Type(typ)
		r.Reason = reason.String
		r.Status = generic.State(status)
		r.L1OfficerID = generic.EntityID(l1)
		r.L2OfficerID = generic.EntityID(l2)
		r.AppliedAt = parseTime(appliedAt)
		r.UpdatedAt = parseTime(updatedAt)

		reqs = append(reqs, r)
	}

	return reqs, rows.Err()
}

// =============================================================================
// EMPLOYEE DIRECTORY (employee.Directory)
// =============================================================================

// SaveEmployee inserts or replaces an employee record.
func (s *Store) SaveEmployee(ctx context.Context, e employee.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, name, week_off_day, designation)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			week_off_day = excluded.week_off_day,
			designation = excluded.designation
	`,
		int64(e.ID),
		e.Name,
		e.WeekOffDay.String(),
		nullString(e.Designation),
	)
	return err
}

// Employee retrieves an employee by ID.
func (s *Store) Employee(ctx context.Context, id generic.EntityID) (employee.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var name, weekOff string
	var designation sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT name, week_off_day, designation FROM employees WHERE id = ?",
		int64(id),
	).Scan(&name, &weekOff, &designation)
	if errors.Is(err, sql.ErrNoRows) {
		return employee.Employee{}, fmt.Errorf("employee %s: %w", id, generic.ErrNotFound)
	}
	if err != nil {
		return employee.Employee{}, err
	}

	return employee.New(id, name, weekOff, designation.String)
}

// LookupApprover returns the approver view of an employee.
func (s *Store) LookupApprover(ctx context.Context, id generic.EntityID) (employee.Approver, error) {
	e, err := s.Employee(ctx, id)
	if err != nil {
		return employee.Approver{}, err
	}
	return employee.Approver{ID: e.ID, Name: e.Name}, nil
}

// =============================================================================
// CLOCK EVENTS (attendance.EventStore)
// =============================================================================

// PutClockEvent writes the day's clock event, replacing any earlier one.
func (s *Store) PutClockEvent(ctx context.Context, empID generic.EntityID, ev attendance.ClockEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clock_events (emp_id, date, clock_in, clock_out)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(emp_id, date) DO UPDATE SET
			clock_in = excluded.clock_in,
			clock_out = excluded.clock_out
	`,
		int64(empID),
		ev.Date,
		nullString(ev.ClockIn),
		nullString(ev.ClockOut),
	)
	return err
}

// ClockEvents returns the employee's events dated inside p, by date.
func (s *Store) ClockEvents(ctx context.Context, empID generic.EntityID, p generic.Period) ([]attendance.ClockEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT date, clock_in, clock_out FROM clock_events
		WHERE emp_id = ? AND date BETWEEN ? AND ?
		ORDER BY date ASC
	`, int64(empID), p.Start.String(), p.End.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []attendance.ClockEvent
	for rows.Next() {
		var ev attendance.ClockEvent
		var in, out sql.NullString
		if err := rows.Scan(&ev.Date, &in, &out); err != nil {
			return nil, err
		}
		ev.ClockIn = in.String
		ev.ClockOut = out.String
		events = append(events, ev)
	}

	return events, rows.Err()
}

// =============================================================================
// HOLIDAY CALENDAR (attendance.HolidayCalendar)
// =============================================================================

// SaveHoliday saves a holiday, renaming it if the date already exists.
func (s *Store) SaveHoliday(ctx context.Context, date generic.TimePoint, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (date, name) VALUES (?, ?)
		ON CONFLICT(date) DO UPDATE SET name = excluded.name
	`, date.String(), name)
	return err
}

// Holidays returns the holiday dates of a month in order.
func (s *Store) Holidays(ctx context.Context, year int, month time.Month) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT date FROM holidays WHERE date LIKE ? ORDER BY date ASC",
		fmt.Sprintf("%04d-%02d-%%", year, int(month)),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}

	return dates, rows.Err()
}

// Helper functions

// remarkRow is the JSON shape of a stored remark.
type remarkRow struct {
	Tier    string    `json:"tier"`
	ActorID int64     `json:"actor_id"`
	Action  string    `json:"action"`
	Note    string    `json:"note,omitempty"`
	At      time.Time `json:"at"`
}

func encodeRemarks(remarks []generic.Remark) (string, error) {
	out := make([]remarkRow, len(remarks))
	for i, r := range remarks {
		out[i] = remarkRow{
			Tier:    string(r.Tier),
			ActorID: int64(r.ActorID),
			Action:  string(r.Action),
			Note:    r.Note,
			At:      r.At.UTC(),
		}
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to encode remarks: %w", err)
	}
	return string(b), nil
}

func decodeRemarks(s string) ([]generic.Remark, error) {
	var rows []remarkRow
	if err := json.Unmarshal([]byte(s), &rows); err != nil {
		return nil, fmt.Errorf("failed to decode remarks: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	out := make([]generic.Remark, len(rows))
	for i, r := range rows {
		out[i] = generic.Remark{
			Tier:    generic.Tier(r.Tier),
			ActorID: generic.EntityID(r.ActorID),
			Action:  generic.Action(r.Action),
			Note:    r.Note,
			At:      r.At,
		}
	}
	return out, nil
}

func requireRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, generic.ErrNotFound)
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseAmount(value, unit string) (generic.Amount, error) {
	return generic.ParseAmount(value, generic.Unit(unit))
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "PRIMARY KEY"))
}
