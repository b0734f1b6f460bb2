package chain

import (
	"fmt"
	"strings"

	"snarkcollective/internal/fieldcodec"
	"snarkcollective/internal/model"
)

// ParseRound extracts a Round from a rounds mapping value. Missing or
// malformed fields default to zero values; the returned error only
// describes what the parser skipped.
func ParseRound(text string) (model.Round, error) {
	s, err := ParseStruct(unwrapBody(text))
	round := model.Round{
		RoundID:           uint32(s.Uint("round_id", 32)),
		IsActive:          s.Bool("is_active"),
		ApprovedProjects:  uint16(s.Uint("approved_projects", 16)),
		SubmittedProjects: uint16(s.Uint("submitted_projects", 16)),
	}
	return round, err
}

// ParseProjectInfo extracts a ProjectInfo from a project details mapping
// value. It returns nil for empty, "null" or unparseable bodies.
func ParseProjectInfo(text string) (*model.ProjectInfo, error) {
	body := unwrapBody(text)
	if body == "" || body == "null" {
		return nil, nil
	}

	s, err := ParseStruct(body)
	if len(s) == 0 {
		if err == nil {
			err = fmt.Errorf("empty struct literal")
		}
		return nil, err
	}

	details := s.Child("project_details")
	info := &model.ProjectInfo{
		ProjectOwner:    strings.TrimSpace(stripVisibility(s.Literal("project_owner"))),
		CollectedAmount: s.Uint("collected_amount", 64),
		JoinedRound:     uint32(s.Uint("joined_round", 32)),
		NumSupporters:   uint32(s.Uint("num_supporters", 32)),
		IsApproved:      s.Bool("is_approved"),
		IsClaimed:       s.Bool("is_claimed"),
		ProjectDetails:  parseDetails(details),
	}
	return info, err
}

func parseDetails(s Struct) model.ProjectDetails {
	title := stripVisibility(s.Literal("title"))
	img := stripVisibility(s.Literal("img"))
	description := stripVisibility(s.Literal("description"))

	return model.ProjectDetails{
		Title:            decodeField(title),
		Img:              decodeField(img),
		Description:      decodeField(description),
		TitleField:       title,
		ImgField:         img,
		DescriptionField: description,
	}
}

func decodeField(literal string) string {
	if literal == "" {
		return ""
	}
	return fieldcodec.Decode(literal)
}
