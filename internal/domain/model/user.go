package model

import (
	"time"

	"github.com/ivankudzin/jobswipe/internal/domain/enums"
)

type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	Role         enums.Role `json:"role"`
	CompanyID    *int64     `json:"company_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`
}

type Company struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Logo    string `json:"logo,omitempty"`
	OwnerID int64  `json:"owner_id"`
}
