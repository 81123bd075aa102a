package cli

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"

	"github.com/ericfisherdev/mrpanel/internal/application"
	"github.com/ericfisherdev/mrpanel/internal/domain/model"
)

var (
	headerColor  = lipgloss.Color("#F780FF")
	accentColor  = lipgloss.Color("#8BE9FD")
	mutedColor   = lipgloss.Color("#6272A4")
	successColor = lipgloss.Color("#50FA7B")
	warnColor    = lipgloss.Color("#F1FA8C")
	errorColor   = lipgloss.Color("#FF5555")

	headerStyle  = lipgloss.NewStyle().Foreground(headerColor).Bold(true)
	accentStyle  = lipgloss.NewStyle().Foreground(accentColor)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	successStyle = lipgloss.NewStyle().Foreground(successColor)
	warnStyle    = lipgloss.NewStyle().Foreground(warnColor)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	quoteStyle   = lipgloss.NewStyle().PaddingLeft(2).BorderLeft(true).
			BorderStyle(lipgloss.NormalBorder()).BorderForeground(mutedColor)
)

// renderFileTree groups changed files by directory, keeping diff order.
func renderFileTree(title string, items []application.ChangedFileItem) string {
	root := tree.Root(headerStyle.Render(title)).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(mutedStyle)
	dirs := map[string]*tree.Tree{"": root}

	for _, it := range items {
		dir := path.Dir(it.Path)
		if dir == "." {
			dir = ""
		}
		dirTree(dirs, dir).Child(fileLabel(it))
	}
	return root.String()
}

func dirTree(dirs map[string]*tree.Tree, dir string) *tree.Tree {
	if t, ok := dirs[dir]; ok {
		return t
	}
	parent := path.Dir(dir)
	if parent == "." {
		parent = ""
	}
	t := tree.Root(accentStyle.Render(path.Base(dir) + "/"))
	dirTree(dirs, parent).Child(t)
	dirs[dir] = t
	return t
}

func fileLabel(it application.ChangedFileItem) string {
	name := path.Base(it.Path)
	switch it.ChangeType {
	case model.ChangeTypeAdded:
		name = successStyle.Render(name) + mutedStyle.Render(" [added]")
	case model.ChangeTypeDeleted:
		name = errorStyle.Render(name) + mutedStyle.Render(" [deleted]")
	case model.ChangeTypeRenamed:
		name += mutedStyle.Render(" [renamed from " + it.OldPath + "]")
	}
	if it.Unsupported {
		name += warnStyle.Render(" (image)")
	}
	return name
}

// renderLineDiff renders a line-level diff of base against head.
func renderLineDiff(base, head string) string {
	dmp := diffpatch.New()
	a, b, lines := dmp.DiffLinesToChars(base, head)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		for _, line := range splitLines(d.Text) {
			switch d.Type {
			case diffpatch.DiffInsert:
				sb.WriteString(successStyle.Render("+ "+line) + "\n")
			case diffpatch.DiffDelete:
				sb.WriteString(errorStyle.Render("- "+line) + "\n")
			case diffpatch.DiffEqual:
				sb.WriteString("  " + line + "\n")
			}
		}
	}
	return sb.String()
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// renderTimeline prints discussions and label events in timeline order.
// Text-diff discussions are prefixed with their anchor.
func renderTimeline(entries []model.TimelineEntry) string {
	if len(entries) == 0 {
		return mutedStyle.Render("No discussions.") + "\n"
	}

	var sb strings.Builder
	for _, e := range entries {
		switch e.Kind {
		case model.EntryLabelEvent:
			ev := e.LabelEvent
			verb := "added"
			if ev.Action == "remove" {
				verb = "removed"
			}
			fmt.Fprintf(&sb, "%s %s %s %s\n",
				mutedStyle.Render(formatWhen(ev.CreatedAt)), ev.User, verb,
				lipgloss.NewStyle().Foreground(labelColor(ev.LabelColor)).Render("~"+ev.LabelName))
		case model.EntryDiscussion:
			renderDiscussion(&sb, *e.Discussion)
		}
	}
	return sb.String()
}

func renderDiscussion(sb *strings.Builder, d model.Discussion) {
	header := ""
	if d.Anchor() == model.AnchorTextDiff {
		loc := d.AnchorPosition().Location()
		header = accentStyle.Render(fmt.Sprintf("%s:%d", loc.Path, loc.Line)) + " "
	}
	if d.Resolved() {
		header += successStyle.Render("[resolved] ")
	}

	for i, n := range d.Notes {
		if n.System {
			fmt.Fprintf(sb, "%s %s %s\n", mutedStyle.Render(formatWhen(n.CreatedAt)), n.Author, mutedStyle.Render(n.Body))
			continue
		}
		prefix := mutedStyle.Render("  ↳ ")
		if i == 0 {
			prefix = header
		}
		fmt.Fprintf(sb, "%s%s %s\n", prefix, headerStyle.Render(n.Author), mutedStyle.Render(formatWhen(n.CreatedAt)))
		sb.WriteString(quoteStyle.Render(n.Body) + "\n")
	}
}

func labelColor(c string) lipgloss.TerminalColor {
	if c == "" {
		return accentColor
	}
	return lipgloss.Color(c)
}

func formatWhen(t time.Time) string {
	if t.IsZero() {
		return "unknown time"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// renderBranchStatus prints each status segment, or its error.
func renderBranchStatus(s *model.BranchStatus) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", headerStyle.Render("Branch"), s.Branch)

	sb.WriteString(headerStyle.Render("Pipeline") + " ")
	switch {
	case s.PipelineErr != nil:
		sb.WriteString(errorStyle.Render(s.PipelineErr.Error()) + "\n")
	case s.Pipeline == nil:
		sb.WriteString(mutedStyle.Render("no pipeline") + "\n")
	default:
		fmt.Fprintf(&sb, "#%d %s %s\n", s.Pipeline.ID, statusStyle(s.Pipeline.Status).Render(s.Pipeline.Status), mutedStyle.Render(s.Pipeline.WebURL))
		for _, j := range s.Jobs {
			fmt.Fprintf(&sb, "  %-12s %-24s %s\n", mutedStyle.Render(j.Stage), j.Name, statusStyle(j.Status).Render(j.Status))
		}
	}

	sb.WriteString(headerStyle.Render("Merge request") + " ")
	switch {
	case s.MergeRequestErr != nil:
		sb.WriteString(errorStyle.Render(s.MergeRequestErr.Error()) + "\n")
	case s.MergeRequest == nil:
		sb.WriteString(mutedStyle.Render("none") + "\n")
	default:
		fmt.Fprintf(&sb, "!%d %s %s\n", s.MergeRequest.IID, s.MergeRequest.Title, mutedStyle.Render(s.MergeRequest.WebURL))
	}

	if s.MergeRequest != nil || s.ClosingIssuesErr != nil {
		sb.WriteString(headerStyle.Render("Closes") + " ")
		switch {
		case s.ClosingIssuesErr != nil:
			sb.WriteString(errorStyle.Render(s.ClosingIssuesErr.Error()) + "\n")
		case len(s.ClosingIssues) == 0:
			sb.WriteString(mutedStyle.Render("no issues") + "\n")
		default:
			sb.WriteString("\n")
			for _, i := range s.ClosingIssues {
				fmt.Fprintf(&sb, "  #%d %s\n", i.IID, i.Title)
			}
		}
	}
	return sb.String()
}

func statusStyle(status string) lipgloss.Style {
	switch status {
	case "success", "passed":
		return successStyle
	case "failed":
		return errorStyle
	case "running", "pending", "created", "preparing", "waiting_for_resource":
		return warnStyle
	default:
		return mutedStyle
	}
}

// renderIssuables prints a query result, or the query's empty text.
func renderIssuables(title, noItemText string, items []model.Issuable) string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render(title) + "\n")
	if len(items) == 0 {
		sb.WriteString("  " + mutedStyle.Render(noItemText) + "\n")
		return sb.String()
	}
	for _, i := range items {
		ref := i.References
		if ref == "" {
			ref = fmt.Sprintf("%d", i.IID)
		}
		fmt.Fprintf(&sb, "  %s %s %s\n", accentStyle.Render(ref), i.Title, mutedStyle.Render("@"+i.Author))
	}
	return sb.String()
}

// renderValidation prints a CI lint result.
func renderValidation(v *model.CIValidation) string {
	var sb strings.Builder
	if v.Valid {
		sb.WriteString(successStyle.Render("CI configuration is valid") + "\n")
	} else {
		sb.WriteString(errorStyle.Render("CI configuration is invalid") + "\n")
	}
	for _, e := range v.Errors {
		sb.WriteString(errorStyle.Render("error: ") + e + "\n")
	}
	for _, w := range v.Warnings {
		sb.WriteString(warnStyle.Render("warning: ") + w + "\n")
	}
	return sb.String()
}

// renderAppliedPatch reports the files a snippet patch changed.
func renderAppliedPatch(p *model.AppliedPatch) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "applied %s from %s\n", headerStyle.Render(p.Blob), accentStyle.Render(fmt.Sprintf("$%d", p.SnippetID)))
	for _, f := range p.Files {
		sb.WriteString("  " + f + "\n")
	}
	return sb.String()
}

// renderSnippets lists snippets with their files.
func renderSnippets(snippets []model.Snippet) string {
	if len(snippets) == 0 {
		return mutedStyle.Render("No snippets.") + "\n"
	}
	var sb strings.Builder
	for _, s := range snippets {
		fmt.Fprintf(&sb, "%s %s\n", accentStyle.Render(fmt.Sprintf("$%d", s.ID)), headerStyle.Render(s.Title))
		for _, b := range s.Blobs {
			sb.WriteString("  " + b.Path + "\n")
		}
	}
	return sb.String()
}
