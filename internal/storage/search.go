package storage

import (
	"context"
	"errors"
	"time"

	"media-directory/internal/cds"
	"media-directory/internal/metrics"
	"media-directory/internal/search"
)

// SearchParams describes a Search request.
type SearchParams struct {
	Criteria string
	Start    int
	// Count limits the result page; 0 returns every match.
	Count int
	Sort  string
}

// Search implements the UPnP Search action. Matches are ordered by id unless
// sort criteria are given. Reserved containers never match.
func (s *Storage) Search(ctx context.Context, p SearchParams) (res *BrowseResult, err error) {
	start := time.Now()
	defer func() { recordQuery("search", start, err) }()

	emitter := s.backend.Emitter()
	predicate, err := search.Compile(p.Criteria, emitter)
	recordCompile(err)
	if err != nil {
		return nil, err
	}

	where := "(" + predicate + ") AND f.id NOT IN (" +
		idList([]int64{cds.IDInvalid, cds.IDRoot, cds.IDFilesystemRoot}) + ")"

	res = &BrowseResult{}
	if res.TotalMatches, err = s.count(ctx, "SELECT COUNT(*) FROM "+ObjectTable+" f WHERE "+where); err != nil {
		return nil, err
	}

	order := "f.id"
	if sort := search.CompileSort(p.Sort, emitter); sort != "" {
		order = sort + ", " + order
	}
	q := selectFrom(SelectFull) + " WHERE " + where + " ORDER BY " + order + limitClause(p.Start, p.Count)
	if res.Objects, err = s.queryObjects(ctx, q, SelectFull); err != nil {
		return nil, err
	}
	if err = s.fillChildCounts(ctx, res.Objects); err != nil {
		return nil, err
	}
	return res, nil
}

// CompileSearch renders criteria with this backend's emitter.
func (s *Storage) CompileSearch(criteria string) (string, error) {
	sql, err := search.Compile(criteria, s.backend.Emitter())
	recordCompile(err)
	return sql, err
}

func recordCompile(err error) {
	status := "success"
	switch {
	case err == nil:
	case errors.Is(err, search.ErrLex):
		status = "lex_error"
	case errors.Is(err, search.ErrParse):
		status = "parse_error"
	default:
		status = "error"
	}
	metrics.SearchCompileTotal.WithLabelValues(status).Inc()
}
