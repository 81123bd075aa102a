package gitlab

import (
	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/ericfisherdev/mrpanel/internal/domain/model"
)

// mapBasicMergeRequest converts a client-go merge request to a domain Issuable.
func mapBasicMergeRequest(mr *gl.BasicMergeRequest) model.Issuable {
	out := model.Issuable{
		ID:           mr.ID,
		IID:          mr.IID,
		ProjectID:    mr.ProjectID,
		Title:        mr.Title,
		Description:  mr.Description,
		WebURL:       mr.WebURL,
		State:        mr.State,
		SHA:          mr.SHA,
		SourceBranch: mr.SourceBranch,
		Kind:         model.IssuableKindMergeRequest,
		CreatedAt:    timeValue(mr.CreatedAt),
		UpdatedAt:    timeValue(mr.UpdatedAt),
	}
	if mr.Author != nil {
		out.Author = mr.Author.Username
	}
	if mr.References != nil {
		out.References = mr.References.Full
	}
	return out
}

// mapIssue converts a client-go issue to a domain Issuable.
func mapIssue(issue *gl.Issue) model.Issuable {
	out := model.Issuable{
		ID:          issue.ID,
		IID:         issue.IID,
		ProjectID:   issue.ProjectID,
		Title:       issue.Title,
		Description: issue.Description,
		WebURL:      issue.WebURL,
		State:       issue.State,
		Kind:        model.IssuableKindIssue,
		CreatedAt:   timeValue(issue.CreatedAt),
		UpdatedAt:   timeValue(issue.UpdatedAt),
	}
	if issue.Author != nil {
		out.Author = issue.Author.Username
	}
	if issue.References != nil {
		out.References = issue.References.Full
	}
	return out
}

func mapVersion(v *gl.MergeRequestDiffVersion) model.MrVersion {
	out := model.MrVersion{
		ID:             v.ID,
		BaseCommitSHA:  v.BaseCommitSHA,
		HeadCommitSHA:  v.HeadCommitSHA,
		StartCommitSHA: v.StartCommitSHA,
		CreatedAt:      timeValue(v.CreatedAt),
	}
	for _, d := range v.Diffs {
		if d == nil {
			continue
		}
		out.Diffs = append(out.Diffs, model.DiffFile{
			OldPath:     d.OldPath,
			NewPath:     d.NewPath,
			NewFile:     d.NewFile,
			DeletedFile: d.DeletedFile,
			RenamedFile: d.RenamedFile,
		})
	}
	return out
}

func mapDiscussion(d *gl.Discussion) model.Discussion {
	out := model.Discussion{
		ID:             d.ID,
		IndividualNote: d.IndividualNote,
		Notes:          make([]model.Note, 0, len(d.Notes)),
	}
	for _, n := range d.Notes {
		if n == nil {
			continue
		}
		out.Notes = append(out.Notes, mapNote(n))
	}
	return out
}

func mapNote(n *gl.Note) model.Note {
	out := model.Note{
		ID:         n.ID,
		Body:       n.Body,
		Author:     n.Author.Username,
		CreatedAt:  timeValue(n.CreatedAt),
		UpdatedAt:  timeValue(n.UpdatedAt),
		System:     n.System,
		Resolvable: n.Resolvable,
		Resolved:   n.Resolved,
	}
	if p := n.Position; p != nil {
		out.Position = &model.Position{
			PositionType: p.PositionType,
			BaseSHA:      p.BaseSHA,
			StartSHA:     p.StartSHA,
			HeadSHA:      p.HeadSHA,
			OldPath:      p.OldPath,
			NewPath:      p.NewPath,
			OldLine:      p.OldLine,
			NewLine:      p.NewLine,
		}
	}
	return out
}

func mapLabelEvent(e *gl.LabelEvent) model.LabelEvent {
	return model.LabelEvent{
		ID:         e.ID,
		Action:     e.Action,
		LabelName:  e.Label.Name,
		LabelColor: e.Label.Color,
		User:       e.User.Username,
		CreatedAt:  timeValue(e.CreatedAt),
	}
}

func mapPipeline(p *gl.Pipeline) model.Pipeline {
	return model.Pipeline{
		ID:        p.ID,
		Status:    p.Status,
		Ref:       p.Ref,
		SHA:       p.SHA,
		WebURL:    p.WebURL,
		CreatedAt: timeValue(p.CreatedAt),
		UpdatedAt: timeValue(p.UpdatedAt),
	}
}

func mapJob(j *gl.Job) model.Job {
	return model.Job{
		ID:        j.ID,
		Name:      j.Name,
		Stage:     j.Stage,
		Status:    j.Status,
		WebURL:    j.WebURL,
		CreatedAt: timeValue(j.CreatedAt),
	}
}
