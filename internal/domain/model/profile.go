package model

import "time"

type Profile struct {
	UserID             int64     `json:"user_id"`
	Headline           string    `json:"headline"`
	Bio                string    `json:"bio"`
	Location           string    `json:"location"`
	AvatarURL          string    `json:"avatar_url,omitempty"`
	ResumeKey          string    `json:"resume_key,omitempty"`
	PreferredRemote    bool      `json:"preferred_remote"`
	PreferredJobTypes  []string  `json:"preferred_job_types"`
	Skills             []string  `json:"skills"`
	OnboardingComplete bool      `json:"onboarding_complete"`
	UpdatedAt          time.Time `json:"updated_at"`
}
