package dto

import "time"

type JobResponse struct {
	ID              int64     `json:"id"`
	PosterID        int64     `json:"posterId"`
	CompanyID       int64     `json:"companyId"`
	CompanyName     string    `json:"companyName"`
	CompanyLogo     string    `json:"companyLogo,omitempty"`
	Status          string    `json:"status"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Location        string    `json:"location"`
	LocationType    string    `json:"locationType"`
	EmploymentType  string    `json:"employmentType"`
	ExperienceLevel string    `json:"experienceLevel"`
	MinSalary       *int      `json:"minSalary,omitempty"`
	MaxSalary       *int      `json:"maxSalary,omitempty"`
	Currency        string    `json:"currency"`
	Featured        bool      `json:"featured"`
	Skills          []string  `json:"skills"`
	ViewCount       int       `json:"viewCount"`
	MatchScore      *int      `json:"matchScore,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

type JobsResponse struct {
	Jobs       []JobResponse  `json:"jobs"`
	Pagination PaginationInfo `json:"pagination"`
}

type PaginationInfo struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasMore bool `json:"hasMore"`
}

type CreateJobRequest struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Location        string   `json:"location"`
	LocationType    string   `json:"locationType"`
	EmploymentType  string   `json:"employmentType"`
	ExperienceLevel string   `json:"experienceLevel"`
	MinSalary       *int     `json:"minSalary,omitempty"`
	MaxSalary       *int     `json:"maxSalary,omitempty"`
	Currency        string   `json:"currency,omitempty"`
	Skills          []string `json:"skills"`
	Status          string   `json:"status,omitempty"`
}
