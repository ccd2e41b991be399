package dto

import "time"

type CompanyResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo,omitempty"`
}

type ProfileResponse struct {
	ID                 int64            `json:"id"`
	Email              string           `json:"email"`
	Name               string           `json:"name"`
	Role               string           `json:"role"`
	Headline           string           `json:"headline"`
	Bio                string           `json:"bio"`
	Location           string           `json:"location"`
	AvatarURL          string           `json:"avatarUrl,omitempty"`
	HasResume          bool             `json:"hasResume"`
	PreferredRemote    bool             `json:"preferredRemote"`
	PreferredJobTypes  []string         `json:"preferredJobTypes"`
	Skills             []string         `json:"skills"`
	OnboardingComplete bool             `json:"onboardingComplete"`
	Company            *CompanyResponse `json:"company,omitempty"`
}

type UpdateProfileRequest struct {
	Headline           *string  `json:"headline,omitempty"`
	Bio                *string  `json:"bio,omitempty"`
	Location           *string  `json:"location,omitempty"`
	AvatarURL          *string  `json:"avatarUrl,omitempty"`
	PreferredRemote    *bool    `json:"preferredRemote,omitempty"`
	PreferredJobTypes  []string `json:"preferredJobTypes,omitempty"`
	Skills             []string `json:"skills,omitempty"`
	OnboardingComplete *bool    `json:"onboardingComplete,omitempty"`
}

type CompanyRequest struct {
	Name string `json:"name"`
	Logo string `json:"logo,omitempty"`
}

type ResumeResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type ProfileSuggestions struct {
	OptimizedHeadline  string   `json:"optimizedHeadline"`
	OptimizedBio       string   `json:"optimizedBio"`
	SuggestedSkills    []string `json:"suggestedSkills"`
	Tips               []string `json:"tips"`
	KeywordSuggestions []string `json:"keywordSuggestions"`
}

type ProfileOptimizationResponse struct {
	Suggestions        ProfileSuggestions `json:"suggestions"`
	AICreditsRemaining int                `json:"aiCreditsRemaining"`
}
