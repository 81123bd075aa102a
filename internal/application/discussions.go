package application

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/mrpanel/internal/domain/model"
	"github.com/ericfisherdev/mrpanel/internal/domain/port/driven"
)

const (
	defaultDiscussionPageSize = 20
	maxConcurrentPages        = 5
)

// DiscussionLoader fetches every discussion of an issuable and reconciles
// them with its label events into one timeline.
type DiscussionLoader struct {
	client  driven.DiscussionReader
	perPage int
}

// NewDiscussionLoader creates a loader requesting perPage discussions per page.
// A non-positive perPage uses the default of 20.
func NewDiscussionLoader(client driven.DiscussionReader, perPage int) *DiscussionLoader {
	if perPage <= 0 {
		perPage = defaultDiscussionPageSize
	}
	return &DiscussionLoader{client: client, perPage: perPage}
}

// Load fetches all discussion pages and the label events concurrently. Any
// page failure fails the load. A label event failure is logged and the
// timeline is built from discussions alone.
func (l *DiscussionLoader) Load(ctx context.Context, issuable model.Issuable) (*model.DiscussionSet, error) {
	labelCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		labels   []model.LabelEvent
		labelErr error
	)
	labelsDone := make(chan struct{})
	go func() {
		defer close(labelsDone)
		labels, labelErr = l.client.ListLabelEvents(labelCtx, issuable)
	}()

	discussions, err := l.loadPages(ctx, issuable)
	if err != nil {
		cancel()
		<-labelsDone
		return nil, err
	}

	<-labelsDone
	if labelErr != nil {
		slog.Warn("label events unavailable, timeline built without them",
			"project_id", issuable.ProjectID, "iid", issuable.IID, "error", labelErr)
		labels = nil
	}

	set := BuildDiscussionSet(discussions, labels)
	return &set, nil
}

// loadPages fetches page 1, then pages 2..N concurrently, and concatenates
// them in page order. Without a page total the next-page links are followed
// one at a time.
func (l *DiscussionLoader) loadPages(ctx context.Context, issuable model.Issuable) ([]model.Discussion, error) {
	first, err := l.client.ListDiscussions(ctx, issuable, 1, l.perPage)
	if err != nil {
		return nil, fmt.Errorf("load discussions page 1: %w", err)
	}
	if first.TotalPages == 0 && first.NextPage > 0 {
		return l.followPages(ctx, issuable, first)
	}
	if first.TotalPages <= 1 {
		return first.Discussions, nil
	}

	pages := make([][]model.Discussion, first.TotalPages)
	pages[0] = first.Discussions

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentPages)
	for page := 2; page <= first.TotalPages; page++ {
		g.Go(func() error {
			p, err := l.client.ListDiscussions(gctx, issuable, page, l.perPage)
			if err != nil {
				return fmt.Errorf("load discussions page %d: %w", page, err)
			}
			pages[page-1] = p.Discussions
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Debug("loaded discussions", "iid", issuable.IID, "pages", first.TotalPages)
	return slices.Concat(pages...), nil
}

func (l *DiscussionLoader) followPages(ctx context.Context, issuable model.Issuable, first driven.DiscussionPage) ([]model.Discussion, error) {
	all := slices.Clone(first.Discussions)
	pages := 1
	for next := first.NextPage; next > 0; pages++ {
		p, err := l.client.ListDiscussions(ctx, issuable, next, l.perPage)
		if err != nil {
			return nil, fmt.Errorf("load discussions page %d: %w", next, err)
		}
		all = append(all, p.Discussions...)
		if p.NextPage <= next {
			break
		}
		next = p.NextPage
	}

	slog.Debug("loaded discussions without page total", "iid", issuable.IID, "pages", pages)
	return all, nil
}

// BuildDiscussionSet merges discussions and label events into a timeline
// and splits discussions by anchor kind.
func BuildDiscussionSet(discussions []model.Discussion, labels []model.LabelEvent) model.DiscussionSet {
	set := model.DiscussionSet{
		Timeline: MergeTimeline(discussions, labels),
		TextDiff: []model.Discussion{},
		General:  []model.Discussion{},
	}
	for _, d := range discussions {
		switch d.Anchor() {
		case model.AnchorTextDiff:
			set.TextDiff = append(set.TextDiff, d)
		default:
			set.General = append(set.General, d)
		}
	}
	return set
}

// MergeTimeline appends label events after discussions and stable-sorts the
// result by timestamp. Entries without a timestamp sort after all others;
// ties keep append order.
func MergeTimeline(discussions []model.Discussion, labels []model.LabelEvent) []model.TimelineEntry {
	entries := make([]model.TimelineEntry, 0, len(discussions)+len(labels))
	for _, d := range discussions {
		entries = append(entries, model.DiscussionEntry(d))
	}
	for _, e := range labels {
		entries = append(entries, model.LabelEventEntry(e))
	}

	slices.SortStableFunc(entries, func(a, b model.TimelineEntry) int {
		at, aok := a.Timestamp()
		bt, bok := b.Timestamp()
		switch {
		case aok && bok:
			return at.Compare(bt)
		case aok:
			return -1
		case bok:
			return 1
		default:
			return 0
		}
	})
	return entries
}
