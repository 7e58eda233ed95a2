package model

// ClipJob is one ranked candidate handed to a clip worker.
type ClipJob struct {
	CycleID   string
	Candidate ScoredCandidate
}
