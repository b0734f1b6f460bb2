package model

// ProjectRecord is the flattened row written by snapshot sinks.
type ProjectRecord struct {
	RoundID         uint32 `json:"round_id"`
	ProjectIndex    uint16 `json:"project_index"`
	ProjectKey      string `json:"project_key"`
	Status          string `json:"status"`
	ProjectOwner    string `json:"project_owner"`
	CollectedAmount uint64 `json:"collected_amount"`
	JoinedRound     uint32 `json:"joined_round"`
	NumSupporters   uint32 `json:"num_supporters"`
	IsApproved      bool   `json:"is_approved"`
	IsClaimed       bool   `json:"is_claimed"`
	Title           string `json:"title"`
	Img             string `json:"img"`
	Description     string `json:"description"`
	ObservedAt      string `json:"observed_at"`
}

// NewProjectRecord flattens a scanned project.
func NewProjectRecord(p Project, observedAt string) ProjectRecord {
	return ProjectRecord{
		RoundID:         p.RoundID,
		ProjectIndex:    p.Index,
		ProjectKey:      p.Key,
		Status:          string(p.Status),
		ProjectOwner:    p.Info.ProjectOwner,
		CollectedAmount: p.Info.CollectedAmount,
		JoinedRound:     p.Info.JoinedRound,
		NumSupporters:   p.Info.NumSupporters,
		IsApproved:      p.Info.IsApproved,
		IsClaimed:       p.Info.IsClaimed,
		Title:           p.Info.ProjectDetails.Title,
		Img:             p.Info.ProjectDetails.Img,
		Description:     p.Info.ProjectDetails.Description,
		ObservedAt:      observedAt,
	}
}
