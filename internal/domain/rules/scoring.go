package rules

import (
	"strings"

	"github.com/ivankudzin/jobswipe/internal/domain/model"
)

const (
	noSkillsScore       = 50
	remoteBonus         = 10
	employmentTypeBonus = 10
	maxScore            = 100
)

// MatchScore rates how well a job fits a candidate profile, 0..100.
// The base is the share of the job's skills the candidate has; a job with
// no listed skills scores 50. Remote and employment type preferences each
// add 10.
func MatchScore(job model.Job, profile model.Profile) int {
	score := noSkillsScore
	if len(job.Skills) > 0 {
		have := make(map[string]struct{}, len(profile.Skills))
		for _, s := range profile.Skills {
			have[normalizeSkill(s)] = struct{}{}
		}
		matched := 0
		for _, s := range job.Skills {
			if _, ok := have[normalizeSkill(s)]; ok {
				matched++
			}
		}
		score = matched * 100 / len(job.Skills)
	}

	if profile.PreferredRemote && strings.EqualFold(job.LocationType, "remote") {
		score += remoteBonus
	}
	for _, jt := range profile.PreferredJobTypes {
		if strings.EqualFold(jt, job.EmploymentType) {
			score += employmentTypeBonus
			break
		}
	}

	if score > maxScore {
		score = maxScore
	}
	return score
}

func normalizeSkill(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
