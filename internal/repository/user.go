package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"authdemo/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned for every failed lookup: no matching record,
// a rejected identifier, and an unavailable store all collapse into it on
// purpose, so a caller cannot tell the cases apart.
var ErrNotFound = errors.New("user not found")

const userColumns = `id, account, firstname, middlename, lastname, nickname,
	role, lang, password_hash, email, email_verified, image, deleted_at, created_at`

type UserRepository interface {
	// FindUser looks up the first record matching the given identifier
	// (numeric id string or account name). It does not filter for anything
	// else, just the identifier; soft-deleted and unverified records are
	// returned as-is.
	FindUser(ctx context.Context, ident string) (*models.User, error)

	// FindByID looks up a record by its numeric id. Id 0 never matches.
	FindByID(ctx context.Context, id int64) (*models.User, error)

	// CreateUser stores a new user and fills in the generated id.
	CreateUser(ctx context.Context, user *models.User) error
}

type userRepository struct {
	db  *sqlx.DB
	log *logrus.Logger
}

func NewUserRepository(db *sqlx.DB, log *logrus.Logger) UserRepository {
	return &userRepository{db: db, log: log}
}

func (r *userRepository) FindUser(ctx context.Context, ident string) (*models.User, error) {
	p, ok := ResolveIdentifier(ident)
	if !ok {
		return nil, ErrNotFound
	}
	return r.find(ctx, p)
}

func (r *userRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if id == 0 {
		return nil, ErrNotFound
	}
	return r.find(ctx, Predicate{ID: id, Account: impossibleAccount})
}

// find runs the predicate query. Store errors are logged and normalized to
// ErrNotFound; find never passes them upward.
func (r *userRepository) find(ctx context.Context, p Predicate) (*models.User, error) {
	var user models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 OR account = $2 LIMIT 1`
	err := r.db.GetContext(ctx, &user, query, p.ID, p.Account)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Failed to query user: %v", err)
		}
		return nil, ErrNotFound
	}
	return &user, nil
}

func (r *userRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	query := `INSERT INTO users (account, firstname, middlename, lastname, nickname,
		role, lang, password_hash, email, email_verified, image, deleted_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`
	return r.db.QueryRowxContext(ctx, query,
		user.Account, user.Firstname, user.Middlename, user.Lastname, user.Nickname,
		user.Role, user.Lang, user.PasswordHash, user.Email, user.EmailVerified,
		user.Image, user.DeletedAt, user.CreatedAt).Scan(&user.ID)
}
