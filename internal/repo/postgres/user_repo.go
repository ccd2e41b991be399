package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/jobswipe/internal/domain/enums"
	"github.com/ivankudzin/jobswipe/internal/domain/model"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrCompanyNotFound = errors.New("company not found")
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, email, password_hash, name, role, company_id, created_at, last_active_at`

func (r *UserRepo) Create(ctx context.Context, tx pgx.Tx, email, passwordHash, name string, role enums.Role) (model.User, error) {
	if tx == nil {
		return model.User{}, fmt.Errorf("transaction is required")
	}
	if strings.TrimSpace(email) == "" || passwordHash == "" || !role.Valid() {
		return model.User{}, fmt.Errorf("invalid user payload")
	}

	row := tx.QueryRow(ctx, `
INSERT INTO users (email, password_hash, name, role)
VALUES ($1, $2, $3, $4)
RETURNING `+userColumns, strings.ToLower(strings.TrimSpace(email)), passwordHash, strings.TrimSpace(name), string(role))

	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return model.User{}, ErrEmailTaken
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}

	user, err := scanUser(r.pool.QueryRow(ctx, `
SELECT `+userColumns+`
FROM users
WHERE email = $1
`, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (r *UserRepo) GetByID(ctx context.Context, userID int64) (model.User, error) {
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return model.User{}, fmt.Errorf("invalid user id")
	}

	user, err := scanUser(r.pool.QueryRow(ctx, `
SELECT `+userColumns+`
FROM users
WHERE id = $1
`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

func (r *UserRepo) TouchLastActive(ctx context.Context, userID int64, at time.Time) error {
	if r.pool == nil {
		return nil
	}
	if _, err := r.pool.Exec(ctx, `
UPDATE users SET last_active_at = $2 WHERE id = $1
`, userID, at.UTC()); err != nil {
		return fmt.Errorf("touch user last active: %w", err)
	}
	return nil
}

// UpsertCompany creates or renames the company owned by ownerID and links
// the owner to it.
func (r *UserRepo) UpsertCompany(ctx context.Context, tx pgx.Tx, ownerID int64, name, logo string) (model.Company, error) {
	if tx == nil {
		return model.Company{}, fmt.Errorf("transaction is required")
	}
	if ownerID <= 0 || strings.TrimSpace(name) == "" {
		return model.Company{}, fmt.Errorf("invalid company payload")
	}

	var company model.Company
	err := tx.QueryRow(ctx, `
INSERT INTO companies (name, logo, owner_id)
VALUES ($1, $2, $3)
ON CONFLICT (owner_id) DO UPDATE SET
	name = EXCLUDED.name,
	logo = EXCLUDED.logo
RETURNING id, name, logo, owner_id
`, strings.TrimSpace(name), strings.TrimSpace(logo), ownerID).Scan(
		&company.ID,
		&company.Name,
		&company.Logo,
		&company.OwnerID,
	)
	if err != nil {
		return model.Company{}, fmt.Errorf("upsert company: %w", err)
	}

	if _, err := tx.Exec(ctx, `
UPDATE users SET company_id = $2 WHERE id = $1
`, ownerID, company.ID); err != nil {
		return model.Company{}, fmt.Errorf("link user company: %w", err)
	}

	return company, nil
}

func (r *UserRepo) GetCompany(ctx context.Context, companyID int64) (model.Company, error) {
	if r.pool == nil {
		return model.Company{}, fmt.Errorf("postgres pool is nil")
	}

	var company model.Company
	err := r.pool.QueryRow(ctx, `
SELECT id, name, logo, owner_id
FROM companies
WHERE id = $1
`, companyID).Scan(&company.ID, &company.Name, &company.Logo, &company.OwnerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Company{}, ErrCompanyNotFound
		}
		return model.Company{}, fmt.Errorf("get company: %w", err)
	}
	return company, nil
}

func scanUser(row pgx.Row) (model.User, error) {
	var (
		user model.User
		role string
	)
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&role,
		&user.CompanyID,
		&user.CreatedAt,
		&user.LastActiveAt,
	); err != nil {
		return model.User{}, err
	}
	user.Role = enums.Role(role)
	return user, nil
}
