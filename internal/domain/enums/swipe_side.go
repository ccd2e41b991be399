package enums

// SwipeSide tells which party of a job recorded a decision.
type SwipeSide string

const (
	// SwipeSideCandidate rows are candidate -> job decisions; receiver is the job poster.
	SwipeSideCandidate SwipeSide = "candidate"
	// SwipeSidePoster rows are poster -> candidate decisions for one of the poster's jobs.
	SwipeSidePoster SwipeSide = "poster"
)
