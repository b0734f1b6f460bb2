package model

import (
	"fmt"
	"math"
)

// Round is the funding round stored in the rounds mapping.
type Round struct {
	RoundID           uint32 `json:"round_id"`
	IsActive          bool   `json:"is_active"`
	ApprovedProjects  uint16 `json:"approved_projects"`
	SubmittedProjects uint16 `json:"submitted_projects"`
}

// MaxProjectIndex returns the highest project index that may exist in either mapping.
func (r Round) MaxProjectIndex() uint16 {
	if r.ApprovedProjects > r.SubmittedProjects {
		return r.ApprovedProjects
	}
	return r.SubmittedProjects
}

// NextSubmissionIndex is the 1-based index the next submitted project will
// occupy. It reports false once every u16 index is taken.
func (r Round) NextSubmissionIndex() (uint16, bool) {
	if r.SubmittedProjects == math.MaxUint16 {
		return 0, false
	}
	return r.SubmittedProjects + 1, true
}

func (r Round) String() string {
	return fmt.Sprintf("{round_id: %du32, is_active: %t, approved_projects: %du16, submitted_projects: %du16}",
		r.RoundID, r.IsActive, r.ApprovedProjects, r.SubmittedProjects)
}
