package rules

import (
	"testing"

	"github.com/ivankudzin/jobswipe/internal/domain/model"
)

func TestMatchScore(t *testing.T) {
	tests := []struct {
		name    string
		job     model.Job
		profile model.Profile
		want    int
	}{
		{
			name: "no job skills",
			job:  model.Job{},
			want: 50,
		},
		{
			name:    "partial overlap is case insensitive",
			job:     model.Job{Skills: []string{"Go", "PostgreSQL", "Redis", "Kafka"}},
			profile: model.Profile{Skills: []string{"go", "redis"}},
			want:    50,
		},
		{
			name:    "remote and job type bonus",
			job:     model.Job{Skills: []string{"Go", "SQL"}, LocationType: "remote", EmploymentType: "full-time"},
			profile: model.Profile{Skills: []string{"Go"}, PreferredRemote: true, PreferredJobTypes: []string{"full-time"}},
			want:    70,
		},
		{
			name:    "capped at 100",
			job:     model.Job{Skills: []string{"Go"}, LocationType: "remote", EmploymentType: "contract"},
			profile: model.Profile{Skills: []string{"Go"}, PreferredRemote: true, PreferredJobTypes: []string{"contract"}},
			want:    100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchScore(tt.job, tt.profile); got != tt.want {
				t.Fatalf("MatchScore() = %d, want %d", got, tt.want)
			}
		})
	}
}
