package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/askerp/askerp-server/internal/store"
	"github.com/askerp/askerp-server/internal/store/model"
)

// DB defines the interface for database operations (satisfied by *sqlx.DB and *sqlx.Tx)
type DB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
}

// Repository implements store.Repository on sqlite.
type Repository struct {
	db       *sqlx.DB // Required for starting new transactions
	executor DB       // Used for actual queries (can be *sqlx.DB or *sqlx.Tx)
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{
		db:       db,
		executor: db,
	}
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) WithTx(ctx context.Context, fn func(repo store.Repository) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	txRepo := &Repository{
		db:       r.db,
		executor: tx,
	}

	if err := fn(txRepo); err != nil {
		// attempt rollback, but prioritize original error
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (r *Repository) Users() store.UserRepository                 { return &userRepo{db: r.executor} }
func (r *Repository) APIKeys() store.APIKeyRepository             { return &apiKeyRepo{db: r.executor} }
func (r *Repository) Models() store.ModelRepository               { return &modelRepo{db: r.executor} }
func (r *Repository) Templates() store.TemplateRepository         { return &templateRepo{db: r.executor} }
func (r *Repository) Profile() store.ProfileRepository            { return &profileRepo{db: r.executor} }
func (r *Repository) Settings() store.SettingsRepository          { return &settingsRepo{db: r.executor} }
func (r *Repository) Alerts() store.AlertRepository               { return &alertRepo{db: r.executor} }
func (r *Repository) Usage() store.UsageRepository                { return &usageRepo{db: r.executor} }
func (r *Repository) Metrics() store.MetricRepository             { return &metricRepo{db: r.executor} }
func (r *Repository) Reports() store.ReportRepository             { return &reportRepo{db: r.executor} }
func (r *Repository) Notifications() store.NotificationRepository { return &notificationRepo{db: r.executor} }
func (r *Repository) Business() store.BusinessRepository          { return &businessRepo{db: r.executor} }

type userRepo struct {
	db DB
}

func (r *userRepo) Get(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u, `SELECT * FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	query := `
	INSERT INTO users (id, email, full_name, roles, allow_chat, enabled, created_at, updated_at)
	VALUES (:id, :email, :full_name, :roles, :allow_chat, :enabled, :created_at, :updated_at)`
	_, err := r.db.NamedExecContext(ctx, query, user)
	return err
}

func (r *userRepo) List(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := r.db.SelectContext(ctx, &users, `SELECT * FROM users WHERE enabled = 1 ORDER BY full_name`)
	return users, err
}

func (r *userRepo) SetAllowChat(ctx context.Context, userIDs []string, allowed bool) (int, error) {
	query, args, err := sqlx.In(
		`UPDATE users SET allow_chat = ?, updated_at = ? WHERE id IN (?)`,
		allowed, time.Now(), userIDs,
	)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

type apiKeyRepo struct {
	db DB
}

func (r *apiKeyRepo) GetByHash(ctx context.Context, hash string) (*model.APIKey, error) {
	var key model.APIKey
	// active check is part of the query for speed
	query := `SELECT * FROM api_keys WHERE key_hash = ? AND is_active = 1`
	err := r.db.GetContext(ctx, &key, query, hash)
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func (r *apiKeyRepo) Create(ctx context.Context, key *model.APIKey) error {
	query := `
	INSERT INTO api_keys (id, user_id, name, key_hash, key_prefix, is_active, created_at, updated_at)
	VALUES (:id, :user_id, :name, :key_hash, :key_prefix, :is_active, :created_at, :updated_at)`
	_, err := r.db.NamedExecContext(ctx, query, key)
	return err
}

func (r *apiKeyRepo) UpdateUsage(ctx context.Context, id string) error {
	query := `UPDATE api_keys SET last_used_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, time.Now(), id)
	return err
}
