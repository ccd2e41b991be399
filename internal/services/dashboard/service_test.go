package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/ivankudzin/jobswipe/internal/domain/enums"
	pgrepo "github.com/ivankudzin/jobswipe/internal/repo/postgres"
)

type statsStub struct {
	seeker    pgrepo.JobSeekerStats
	recruiter pgrepo.RecruiterStats
	calls     []string
}

func (s *statsStub) JobSeeker(context.Context, int64) (pgrepo.JobSeekerStats, error) {
	s.calls = append(s.calls, "jobseeker")
	return s.seeker, nil
}

func (s *statsStub) Recruiter(context.Context, int64) (pgrepo.RecruiterStats, error) {
	s.calls = append(s.calls, "recruiter")
	return s.recruiter, nil
}

func TestForJobSeeker(t *testing.T) {
	stats := &statsStub{seeker: pgrepo.JobSeekerStats{Swipes: 4, Matches: 1, ProfileSkills: 3, OnboardingReady: true}}
	d, err := NewService(stats).For(context.Background(), 1, enums.RoleJobSeeker)
	if err != nil {
		t.Fatalf("For error: %v", err)
	}
	if d.JobSeeker == nil || d.Recruiter != nil {
		t.Fatalf("expected only the job seeker view, got %+v", d)
	}
	if d.JobSeeker.Swipes != 4 || d.JobSeeker.Matches != 1 {
		t.Fatalf("unexpected stats %+v", d.JobSeeker)
	}
	if len(d.NextSteps) != 1 || d.NextSteps[0] != "Upload your resume" {
		t.Fatalf("unexpected next steps %v", d.NextSteps)
	}
}

func TestForRecruiter(t *testing.T) {
	stats := &statsStub{recruiter: pgrepo.RecruiterStats{PendingReview: 2}}
	d, err := NewService(stats).For(context.Background(), 2, enums.RoleRecruiter)
	if err != nil {
		t.Fatalf("For error: %v", err)
	}
	if d.Recruiter == nil || d.JobSeeker != nil {
		t.Fatalf("expected only the recruiter view, got %+v", d)
	}
	want := []string{"Set up your company profile", "Post your first job", "Review interested candidates"}
	if len(d.NextSteps) != len(want) {
		t.Fatalf("next steps = %v, want %v", d.NextSteps, want)
	}
	for i := range want {
		if d.NextSteps[i] != want[i] {
			t.Fatalf("next steps = %v, want %v", d.NextSteps, want)
		}
	}
}

func TestForUnknownRole(t *testing.T) {
	stats := &statsStub{}
	if _, err := NewService(stats).For(context.Background(), 3, enums.Role("admin")); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("error = %v, want ErrUnknownRole", err)
	}
	if len(stats.calls) != 0 {
		t.Fatalf("unknown role must not query stats")
	}
}
