package notes

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mbellotti/scribble/internal/note"
)

// Search returns notes matching the query. An empty query returns the full
// collection in stored order. Otherwise local matches come from a
// case-insensitive substring test on title or content; when signed in the
// server's ranked full-text results are merged on top, with the remote
// copy winning for any id found in both. Remote failure falls back
// silently to the local results.
func (s *Service) Search(ctx context.Context, query string) ([]note.Note, error) {
	local, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(query) == "" {
		return local, nil
	}

	var results []note.Note
	for _, n := range local {
		if n.MatchesQuery(query) {
			results = append(results, n)
		}
	}

	if ident := s.currentIdentity(); ident != nil {
		remoteHits, err := s.remote.SearchFullText(ctx, query, ident.UserID)
		if err != nil {
			s.log.Warn("remote search failed; using local results only", zap.Error(err))
		} else {
			remoteIDs := make(map[string]bool, len(remoteHits))
			for _, r := range remoteHits {
				remoteIDs[r.ID] = true
			}
			merged := remoteHits
			for _, n := range results {
				if !remoteIDs[n.ID] {
					merged = append(merged, n)
				}
			}
			results = merged
		}
	}

	// Title matches rank ahead of content-only matches; within each group
	// newest first.
	sort.SliceStable(results, func(i, j int) bool {
		ti, tj := results[i].TitleMatches(query), results[j].TitleMatches(query)
		if ti != tj {
			return ti
		}
		return results[i].UpdatedAt.After(results[j].UpdatedAt)
	})

	return results, nil
}
