package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"washbay/internal/domain"
	"washbay/internal/ports"
	"washbay/logging"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	maxBusyRetries = 5
)

// Options configures the database connection
type Options struct {
	Debug        bool
	DSN          string
	Driver       string
	MaxOpenConns int
	Path         string
}

// Repository implements ports.Store using GORM. A Repository handed to an
// Atomically callback is bound to that transaction.
type Repository struct {
	db     *gorm.DB
	driver string
}

// Verify interface compliance at compile time
var _ ports.Store = (*Repository)(nil)

// NewSQLiteRepository opens (or creates) a SQLite database at dbPath
func NewSQLiteRepository(dbPath string) (*Repository, error) {
	return NewRepository(Options{Driver: DriverSQLite, Path: dbPath})
}

// NewRepository opens the configured database and migrates the schema
func NewRepository(opts Options) (*Repository, error) {
	dialector, err := openDialector(opts)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(opts.Debug || os.Getenv("WASHBAY_DEBUG") == "1"),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		PrepareStmt:    false,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}

	if err := db.AutoMigrate(&BoxModel{}, &SessionModel{}, &EventModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	logging.Logger.Debug("database opened", "driver", opts.Driver, "path", opts.Path)
	return &Repository{db: db, driver: driverName(opts.Driver)}, nil
}

func driverName(driver string) string {
	if driver == "" {
		return DriverSQLite
	}
	return driver
}

func openDialector(opts Options) (gorm.Dialector, error) {
	switch driverName(opts.Driver) {
	case DriverSQLite:
		dbPath := opts.Path
		if dbPath == "" {
			return nil, fmt.Errorf("%w: sqlite database path is empty", domain.ErrInvalidInput)
		}
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		// BEGIN IMMEDIATE takes the write lock up front so two processes
		// never both read-then-upgrade inside a transaction.
		dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate&_foreign_keys=on", dbPath)
		return sqlite.Open(dsn), nil
	case DriverPostgres:
		if opts.DSN == "" {
			return nil, fmt.Errorf("%w: postgres driver requires a dsn", domain.ErrInvalidInput)
		}
		return postgres.Open(opts.DSN), nil
	default:
		return nil, fmt.Errorf("%w: unknown database driver %q", domain.ErrInvalidInput, opts.Driver)
	}
}

// Close closes the database connection
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Atomically runs fn inside one transaction. SQLite lock contention is
// retried; fn must therefore be safe to run again from the start.
func (r *Repository) Atomically(ctx context.Context, fn func(repo ports.Repository) error) error {
	run := func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(&Repository{db: tx, driver: r.driver})
		})
	}
	if r.driver != DriverSQLite {
		return run()
	}
	return withRetry(ctx, run, maxBusyRetries)
}

// GetSession returns a session by id
func (r *Repository) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	var m SessionModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	s := sessionModelToDomain(m)
	return &s, nil
}

// ListSessions returns sessions matching filter, oldest first
func (r *Repository) ListSessions(ctx context.Context, filter domain.SessionFilter) ([]domain.Session, error) {
	q := r.db.WithContext(ctx).Model(&SessionModel{})
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		q = q.Where("status IN ?", statuses)
	}
	if filter.BoxID != "" {
		q = q.Where("box_id = ?", filter.BoxID)
	}
	if filter.Since != nil {
		q = q.Where("updated_at >= ?", filter.Since.UTC())
	}

	var models []SessionModel
	if err := q.Order("created_at ASC, id ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sortedSessions(models), nil
}

// ListQueue returns in_queue sessions in FIFO order
func (r *Repository) ListQueue(ctx context.Context) ([]domain.Session, error) {
	return r.ListSessions(ctx, domain.SessionFilter{Statuses: []domain.SessionStatus{domain.SessionInQueue}})
}

// sortedSessions orders by creation time in Go as well: SQLite compares the
// stored timestamps as text.
func sortedSessions(models []SessionModel) []domain.Session {
	sessions := make([]domain.Session, len(models))
	for i, m := range models {
		sessions[i] = sessionModelToDomain(m)
	}
	slices.SortStableFunc(sessions, func(a, b domain.Session) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return sessions
}

// CreateSession inserts a new session with version 1
func (r *Repository) CreateSession(ctx context.Context, s *domain.Session) error {
	if s.ID == "" {
		s.ID = domain.NewID()
	}
	s.Version = 1
	m := domainToSessionModel(*s)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: session %s already exists", domain.ErrConflict, s.ID)
		}
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// UpdateSession writes every column of s if the stored version still matches
func (r *Repository) UpdateSession(ctx context.Context, s *domain.Session) error {
	expected := s.Version
	m := domainToSessionModel(*s)
	m.Version = expected + 1

	result := r.db.WithContext(ctx).Model(&m).
		Where("version = ?", expected).
		Select("*").
		Updates(&m)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: box already held by another session", domain.ErrConflict)
		}
		return fmt.Errorf("failed to update session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return r.missOrConflict(ctx, &SessionModel{}, s.ID, domain.ErrSessionNotFound, "session")
	}
	s.Version = m.Version
	return nil
}

// GetBox returns a box by id
func (r *Repository) GetBox(ctx context.Context, id string) (*domain.Box, error) {
	return r.getBox(ctx, "id = ?", id)
}

// GetBoxByNumber returns a box by its display number
func (r *Repository) GetBoxByNumber(ctx context.Context, number int) (*domain.Box, error) {
	return r.getBox(ctx, "number = ?", number)
}

func (r *Repository) getBox(ctx context.Context, where string, arg any) (*domain.Box, error) {
	var m BoxModel
	if err := r.db.WithContext(ctx).Where(where, arg).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %v", domain.ErrBoxNotFound, arg)
		}
		return nil, fmt.Errorf("failed to get box: %w", err)
	}
	b := boxModelToDomain(m)
	return &b, nil
}

// ListBoxes returns boxes matching filter ordered by number
func (r *Repository) ListBoxes(ctx context.Context, filter domain.BoxFilter) ([]domain.Box, error) {
	q := r.db.WithContext(ctx).Model(&BoxModel{})
	if filter.ServiceType != "" {
		q = q.Where("service_type = ?", string(filter.ServiceType))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		q = q.Where("status IN ?", statuses)
	}

	var models []BoxModel
	if err := q.Order("number ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list boxes: %w", err)
	}
	boxes := make([]domain.Box, len(models))
	for i, m := range models {
		boxes[i] = boxModelToDomain(m)
	}
	return boxes, nil
}

// UpdateBox writes every column of b if the stored version still matches.
// A unique violation on the cleaning slot surfaces as ErrCleaningSlotTaken.
func (r *Repository) UpdateBox(ctx context.Context, b *domain.Box) error {
	expected := b.Version
	m := domainToBoxModel(*b)
	m.Version = expected + 1

	result := r.db.WithContext(ctx).Model(&m).
		Where("version = ?", expected).
		Select("*").
		Updates(&m)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			if b.HoldsCleaningSlot() {
				return fmt.Errorf("%w: another box holds the cleaning slot", domain.ErrCleaningSlotTaken)
			}
			return fmt.Errorf("%w: box %d write violates a uniqueness constraint", domain.ErrConflict, b.Number)
		}
		return fmt.Errorf("failed to update box: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return r.missOrConflict(ctx, &BoxModel{}, b.ID, domain.ErrBoxNotFound, "box")
	}
	b.Version = m.Version
	return nil
}

// SyncFleet upserts the configured fleet by box number
func (r *Repository) SyncFleet(ctx context.Context, boxes []domain.Box) (int, error) {
	created := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, want := range boxes {
			var m BoxModel
			err := tx.Where("number = ?", want.Number).First(&m).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				if want.ID == "" {
					want.ID = domain.NewID()
				}
				want.Status = domain.BoxFree
				want.Version = 1
				nm := domainToBoxModel(want)
				if err := tx.Create(&nm).Error; err != nil {
					return fmt.Errorf("failed to create box %d: %w", want.Number, err)
				}
				created++
			case err != nil:
				return fmt.Errorf("failed to look up box %d: %w", want.Number, err)
			case m.ServiceType != string(want.ServiceType) || m.ChemistryEnabled != want.ChemistryEnabled:
				err := tx.Model(&BoxModel{}).Where("id = ?", m.ID).Updates(map[string]any{
					"chemistry_enabled": want.ChemistryEnabled,
					"service_type":      string(want.ServiceType),
					"updated_at":        want.UpdatedAt.UTC(),
					"version":           gorm.Expr("version + 1"),
				}).Error
				if err != nil {
					return fmt.Errorf("failed to refresh box %d: %w", want.Number, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// AppendEvent records an audit event
func (r *Repository) AppendEvent(ctx context.Context, e *domain.Event) error {
	if e.ID == "" {
		e.ID = domain.NewID()
	}
	m, err := domainToEventModel(*e)
	if err != nil {
		return fmt.Errorf("failed to encode event details: %w", err)
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// ListEvents returns events matching filter, oldest first. With a limit,
// the most recent events are kept.
func (r *Repository) ListEvents(ctx context.Context, filter ports.EventFilter) ([]domain.Event, error) {
	q := r.db.WithContext(ctx).Model(&EventModel{})
	if filter.BoxID != "" {
		q = q.Where("box_id = ?", filter.BoxID)
	}
	if filter.SessionID != "" {
		q = q.Where("session_id = ?", filter.SessionID)
	}
	if !filter.Since.IsZero() {
		q = q.Where("created_at >= ?", filter.Since.UTC())
	}
	if filter.Type != "" {
		q = q.Where("type = ?", string(filter.Type))
	}
	q = q.Order("created_at DESC, id DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var models []EventModel
	if err := q.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	events := make([]domain.Event, len(models))
	for i, m := range models {
		events[len(models)-1-i] = eventModelToDomain(m)
	}
	return events, nil
}

func (r *Repository) missOrConflict(ctx context.Context, model any, id string, notFound error, kind string) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check %s: %w", kind, err)
	}
	if count == 0 {
		return fmt.Errorf("%w: %s", notFound, id)
	}
	return fmt.Errorf("%w: %s %s was modified concurrently", domain.ErrConflict, kind, id)
}

// withRetry retries operations on SQLITE_BUSY with linear backoff
func withRetry(ctx context.Context, fn func() error, maxRetries int) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		err = fn()
		if err == nil {
			return nil
		}

		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && (sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
			logging.Logger.Warn("database busy, retrying", "attempt", i+1, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Millisecond * time.Duration(50*(i+1))):
			}
			continue
		}

		return err
	}
	return fmt.Errorf("operation failed after %d retries: %w", maxRetries, err)
}
