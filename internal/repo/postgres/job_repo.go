package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/jobswipe/internal/domain/enums"
	"github.com/ivankudzin/jobswipe/internal/domain/model"
)

var ErrJobNotFound = errors.New("job not found")

type JobRepo struct {
	pool *pgxpool.Pool
}

type JobInput struct {
	PosterID        int64
	CompanyID       int64
	Status          enums.JobStatus
	Title           string
	Description     string
	Location        string
	LocationType    string
	EmploymentType  string
	ExperienceLevel string
	MinSalary       *int
	MaxSalary       *int
	Currency        string
	Skills          []string
}

type JobFilter struct {
	Search          string
	Location        string
	LocationType    string
	EmploymentType  string
	ExperienceLevel string
	MinSalary       *int
	MaxSalary       *int
	// ExcludeDecidedBy hides jobs the given candidate already swiped on.
	ExcludeDecidedBy int64
	Limit            int
	Offset           int
}

func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

const jobSelect = `
SELECT
	j.id,
	j.poster_id,
	j.company_id,
	c.name,
	c.logo,
	j.status,
	j.title,
	j.description,
	j.location,
	j.location_type,
	j.employment_type,
	j.experience_level,
	j.min_salary,
	j.max_salary,
	j.currency,
	j.featured,
	j.view_count,
	j.created_at,
	COALESCE(ARRAY(
		SELECT s.name
		FROM job_skills js
		JOIN skills s ON s.id = js.skill_id
		WHERE js.job_id = j.id
		ORDER BY s.name
	), '{}')
FROM jobs j
JOIN companies c ON c.id = j.company_id
`

func (r *JobRepo) Create(ctx context.Context, tx pgx.Tx, in JobInput) (int64, error) {
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}
	if in.PosterID <= 0 || in.CompanyID <= 0 || strings.TrimSpace(in.Title) == "" {
		return 0, fmt.Errorf("invalid job payload")
	}

	var jobID int64
	err := tx.QueryRow(ctx, `
INSERT INTO jobs (
	poster_id,
	company_id,
	status,
	title,
	description,
	location,
	location_type,
	employment_type,
	experience_level,
	min_salary,
	max_salary,
	currency
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING id
`,
		in.PosterID,
		in.CompanyID,
		string(in.Status),
		strings.TrimSpace(in.Title),
		in.Description,
		in.Location,
		in.LocationType,
		in.EmploymentType,
		in.ExperienceLevel,
		in.MinSalary,
		in.MaxSalary,
		in.Currency,
	).Scan(&jobID)
	if err != nil {
		return 0, fmt.Errorf("create job: %w", err)
	}

	ids, err := ensureSkills(ctx, tx, in.Skills)
	if err != nil {
		return 0, err
	}
	if len(ids) > 0 {
		if _, err := tx.Exec(ctx, `
INSERT INTO job_skills (job_id, skill_id)
SELECT $1, unnest($2::bigint[])
ON CONFLICT DO NOTHING
`, jobID, ids); err != nil {
			return 0, fmt.Errorf("insert job skills: %w", err)
		}
	}

	return jobID, nil
}

func (r *JobRepo) Get(ctx context.Context, jobID int64) (model.Job, error) {
	if r.pool == nil {
		return model.Job{}, fmt.Errorf("postgres pool is nil")
	}
	if jobID <= 0 {
		return model.Job{}, ErrJobNotFound
	}

	job, err := scanJob(r.pool.QueryRow(ctx, jobSelect+`WHERE j.id = $1`, jobID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Job{}, ErrJobNotFound
		}
		return model.Job{}, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

func (r *JobRepo) IncrementViews(ctx context.Context, jobID int64) error {
	if r.pool == nil {
		return nil
	}
	if _, err := r.pool.Exec(ctx, `UPDATE jobs SET view_count = view_count + 1 WHERE id = $1`, jobID); err != nil {
		return fmt.Errorf("increment job views: %w", err)
	}
	return nil
}

// List returns active jobs matching the filter, featured first then newest,
// together with the total number of matching rows.
func (r *JobRepo) List(ctx context.Context, f JobFilter) ([]model.Job, int, error) {
	if r.pool == nil {
		return []model.Job{}, 0, nil
	}
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	where, args := buildJobFilter(f)

	var total int
	if err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM jobs j
JOIN companies c ON c.id = j.company_id
WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	args = append(args, f.Limit, f.Offset)
	query := jobSelect + `WHERE ` + where + `
ORDER BY j.featured DESC, j.created_at DESC, j.id DESC
LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	items := make([]model.Job, 0, f.Limit)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan job: %w", err)
		}
		items = append(items, job)
	}
	if rows.Err() != nil {
		return nil, 0, fmt.Errorf("iterate jobs: %w", rows.Err())
	}

	return items, total, nil
}

func buildJobFilter(f JobFilter) (string, []any) {
	clauses := []string{"j.status = 'active'"}
	args := make([]any, 0, 8)
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if s := strings.TrimSpace(f.Search); s != "" {
		p := next("%" + s + "%")
		clauses = append(clauses, "(j.title ILIKE "+p+" OR j.description ILIKE "+p+" OR c.name ILIKE "+p+")")
	}
	if s := strings.TrimSpace(f.Location); s != "" {
		clauses = append(clauses, "j.location ILIKE "+next("%"+s+"%"))
	}
	if s := strings.TrimSpace(f.LocationType); s != "" {
		clauses = append(clauses, "j.location_type = "+next(s))
	}
	if s := strings.TrimSpace(f.EmploymentType); s != "" {
		clauses = append(clauses, "j.employment_type = "+next(s))
	}
	if s := strings.TrimSpace(f.ExperienceLevel); s != "" {
		clauses = append(clauses, "j.experience_level = "+next(s))
	}
	if f.MinSalary != nil {
		clauses = append(clauses, "COALESCE(j.max_salary, j.min_salary, 0) >= "+next(*f.MinSalary))
	}
	if f.MaxSalary != nil {
		clauses = append(clauses, "COALESCE(j.min_salary, 0) <= "+next(*f.MaxSalary))
	}
	if f.ExcludeDecidedBy > 0 {
		clauses = append(clauses, `NOT EXISTS (
	SELECT 1 FROM swipes s
	WHERE s.job_id = j.id AND s.sender_id = `+next(f.ExcludeDecidedBy)+` AND s.side = 'candidate'
)`)
	}

	return strings.Join(clauses, " AND "), args
}

func scanJob(row pgx.Row) (model.Job, error) {
	var (
		job    model.Job
		status string
	)
	if err := row.Scan(
		&job.ID,
		&job.PosterID,
		&job.CompanyID,
		&job.CompanyName,
		&job.CompanyLogo,
		&status,
		&job.Title,
		&job.Description,
		&job.Location,
		&job.LocationType,
		&job.EmploymentType,
		&job.ExperienceLevel,
		&job.MinSalary,
		&job.MaxSalary,
		&job.Currency,
		&job.Featured,
		&job.ViewCount,
		&job.CreatedAt,
		&job.Skills,
	); err != nil {
		return model.Job{}, err
	}
	job.Status = enums.JobStatus(status)
	return job, nil
}
