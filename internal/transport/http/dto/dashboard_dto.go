package dto

type JobSeekerDashboard struct {
	Swipes         int  `json:"swipes"`
	InterestedSent int  `json:"interestedSent"`
	Matches        int  `json:"matches"`
	UnreadMessages int  `json:"unreadMessages"`
	ProfileSkills  int  `json:"profileSkills"`
	ResumeUploaded bool `json:"resumeUploaded"`
}

type RecruiterDashboard struct {
	ActiveJobs        int `json:"activeJobs"`
	TotalViews        int `json:"totalViews"`
	CandidateInterest int `json:"candidateInterest"`
	PendingReview     int `json:"pendingReview"`
	Matches           int `json:"matches"`
	UnreadMessages    int `json:"unreadMessages"`
}

type DashboardResponse struct {
	Role      string              `json:"role"`
	JobSeeker *JobSeekerDashboard `json:"jobseeker,omitempty"`
	Recruiter *RecruiterDashboard `json:"recruiter,omitempty"`
	NextSteps []string            `json:"nextSteps"`
}
