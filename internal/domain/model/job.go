package model

import (
	"time"

	"github.com/ivankudzin/jobswipe/internal/domain/enums"
)

type Job struct {
	ID              int64           `json:"id"`
	PosterID        int64           `json:"poster_id"`
	CompanyID       int64           `json:"company_id"`
	CompanyName     string          `json:"company_name"`
	CompanyLogo     string          `json:"company_logo,omitempty"`
	Status          enums.JobStatus `json:"status"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Location        string          `json:"location"`
	LocationType    string          `json:"location_type"`
	EmploymentType  string          `json:"employment_type"`
	ExperienceLevel string          `json:"experience_level"`
	MinSalary       *int            `json:"min_salary,omitempty"`
	MaxSalary       *int            `json:"max_salary,omitempty"`
	Currency        string          `json:"currency"`
	Featured        bool            `json:"featured"`
	Skills          []string        `json:"skills"`
	ViewCount       int             `json:"view_count"`
	CreatedAt       time.Time       `json:"created_at"`
}
