package model

import (
	"fmt"
	"strings"
)

// ProjectDetails holds decoded project metadata together with the field
// literals it was decoded from. The literals are the values sent back
// on-chain; the decoded strings are for display only.
type ProjectDetails struct {
	Title       string `json:"title"`
	Img         string `json:"img"`
	Description string `json:"description"`

	TitleField       string `json:"title_field,omitempty"`
	ImgField         string `json:"img_field,omitempty"`
	DescriptionField string `json:"description_field,omitempty"`
}

// ProjectInfo is the value stored in the project details mappings.
type ProjectInfo struct {
	ProjectOwner    string         `json:"project_owner"`
	CollectedAmount uint64         `json:"collected_amount"`
	JoinedRound     uint32         `json:"joined_round"`
	NumSupporters   uint32         `json:"num_supporters"`
	IsApproved      bool           `json:"is_approved"`
	IsClaimed       bool           `json:"is_claimed"`
	ProjectDetails  ProjectDetails `json:"project_details"`
}

// Literal renders the project as a struct literal in the program's input syntax.
func (p ProjectInfo) Literal() string {
	d := p.ProjectDetails
	var b strings.Builder
	fmt.Fprintf(&b, "{project_owner: %s, collected_amount: %du64, joined_round: %du32, num_supporters: %du32, is_approved: %t, is_claimed: %t, ",
		p.ProjectOwner, p.CollectedAmount, p.JoinedRound, p.NumSupporters, p.IsApproved, p.IsClaimed)
	fmt.Fprintf(&b, "project_details: {title: %s, img: %s, description: %s}}",
		fieldOrQuoted(d.TitleField, d.Title),
		fieldOrQuoted(d.ImgField, d.Img),
		fieldOrQuoted(d.DescriptionField, d.Description),
	)
	return b.String()
}

func fieldOrQuoted(field, display string) string {
	if field != "" {
		return field
	}
	return `"` + display + `"`
}

// ProjectStatus says which mapping a project was read from.
type ProjectStatus string

const (
	ProjectApproved ProjectStatus = "approved"
	ProjectPending  ProjectStatus = "pending"
)

// Project is one entry of a round scan. Key is the derived project key
// with its type suffix; ID is the same key without it.
type Project struct {
	RoundID uint32        `json:"round_id"`
	Index   uint16        `json:"project_index"`
	Key     string        `json:"project_key"`
	ID      string        `json:"project_id"`
	Status  ProjectStatus `json:"status"`
	Info    ProjectInfo   `json:"project_info"`
}

func (p Project) Approved() bool {
	return p.Status == ProjectApproved
}
