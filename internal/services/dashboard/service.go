package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/ivankudzin/jobswipe/internal/domain/enums"
	pgrepo "github.com/ivankudzin/jobswipe/internal/repo/postgres"
)

var ErrUnknownRole = errors.New("unknown role")

type StatsStore interface {
	JobSeeker(ctx context.Context, userID int64) (pgrepo.JobSeekerStats, error)
	Recruiter(ctx context.Context, userID int64) (pgrepo.RecruiterStats, error)
}

type JobSeeker struct {
	Swipes         int
	InterestedSent int
	Matches        int
	UnreadMessages int
	ProfileSkills  int
	ResumeUploaded bool
}

type Recruiter struct {
	ActiveJobs        int
	TotalViews        int
	CandidateInterest int
	PendingReview     int
	Matches           int
	UnreadMessages    int
}

// Dashboard carries exactly one of JobSeeker or Recruiter, matching Role.
type Dashboard struct {
	Role      enums.Role
	JobSeeker *JobSeeker
	Recruiter *Recruiter
	NextSteps []string
}

type Service struct {
	stats StatsStore
}

func NewService(stats StatsStore) *Service {
	return &Service{stats: stats}
}

func (s *Service) For(ctx context.Context, userID int64, role enums.Role) (Dashboard, error) {
	switch role {
	case enums.RoleJobSeeker:
		st, err := s.stats.JobSeeker(ctx, userID)
		if err != nil {
			return Dashboard{}, fmt.Errorf("load job seeker stats: %w", err)
		}
		return Dashboard{
			Role: role,
			JobSeeker: &JobSeeker{
				Swipes:         st.Swipes,
				InterestedSent: st.InterestedSent,
				Matches:        st.Matches,
				UnreadMessages: st.UnreadMessages,
				ProfileSkills:  st.ProfileSkills,
				ResumeUploaded: st.ResumeUploaded,
			},
			NextSteps: jobSeekerSteps(st),
		}, nil
	case enums.RoleRecruiter:
		st, err := s.stats.Recruiter(ctx, userID)
		if err != nil {
			return Dashboard{}, fmt.Errorf("load recruiter stats: %w", err)
		}
		return Dashboard{
			Role: role,
			Recruiter: &Recruiter{
				ActiveJobs:        st.ActiveJobs,
				TotalViews:        st.TotalViews,
				CandidateInterest: st.CandidateInterest,
				PendingReview:     st.PendingReview,
				Matches:           st.Matches,
				UnreadMessages:    st.UnreadMessages,
			},
			NextSteps: recruiterSteps(st),
		}, nil
	default:
		return Dashboard{}, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
}

func jobSeekerSteps(st pgrepo.JobSeekerStats) []string {
	steps := make([]string, 0, 4)
	if !st.OnboardingReady {
		steps = append(steps, "Complete your profile")
	}
	if st.ProfileSkills == 0 {
		steps = append(steps, "Add your skills")
	}
	if !st.ResumeUploaded {
		steps = append(steps, "Upload your resume")
	}
	if st.UnreadMessages > 0 {
		steps = append(steps, "Reply to your messages")
	}
	return steps
}

func recruiterSteps(st pgrepo.RecruiterStats) []string {
	steps := make([]string, 0, 4)
	if !st.HasCompanyProfile {
		steps = append(steps, "Set up your company profile")
	}
	if st.ActiveJobs == 0 {
		steps = append(steps, "Post your first job")
	}
	if st.PendingReview > 0 {
		steps = append(steps, "Review interested candidates")
	}
	if st.UnreadMessages > 0 {
		steps = append(steps, "Reply to your messages")
	}
	return steps
}
