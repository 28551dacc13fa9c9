package storage

import (
	"context"
	"math"
	"time"

	"media-directory/internal/cds"
	"media-directory/internal/search"
)

// BrowseFlag selects what Browse returns.
type BrowseFlag int

const (
	// BrowseMetadata returns the object itself. It is the zero value.
	BrowseMetadata BrowseFlag = 0
	// BrowseDirectChildren returns the children of a container.
	BrowseDirectChildren BrowseFlag = 1 << iota
	// BrowseItems restricts children to items.
	BrowseItems
	// BrowseContainers restricts children to containers.
	BrowseContainers
)

// BrowseParams describes a Browse request.
type BrowseParams struct {
	ObjectID int64
	Flags    BrowseFlag
	// Start is the offset of the first child returned.
	Start int
	// Count limits the number of children; 0 returns all of them.
	Count int
	// Sort is optional UPnP sort criteria applied before the default order.
	Sort string
}

// BrowseResult is one page of objects.
type BrowseResult struct {
	Objects []*cds.Object
	// TotalMatches counts every match, not only the returned page.
	TotalMatches int64
}

// Browse implements the UPnP Browse action. Containers in the result carry
// their live child count.
func (s *Storage) Browse(ctx context.Context, p BrowseParams) (res *BrowseResult, err error) {
	start := time.Now()
	defer func() { recordQuery("browse", start, err) }()

	children := p.Flags&BrowseDirectChildren != 0
	mode := SelectBasic
	if !children {
		mode = SelectFull
	}
	target, err := s.loadObject(ctx, p.ObjectID, mode)
	if err != nil {
		return nil, err
	}

	res = &BrowseResult{}
	if !children {
		res.Objects = []*cds.Object{target}
		res.TotalMatches = 1
	} else if target.IsContainer() {
		where := "f.parent_id = " + intLiteral(p.ObjectID) + " AND f.id <> " + intLiteral(cds.IDInvalid)
		if filter := typeFilter(p.Flags); filter != "" {
			where += " AND " + filter
		}

		if res.TotalMatches, err = s.count(ctx, "SELECT COUNT(*) FROM "+ObjectTable+" f WHERE "+where); err != nil {
			return nil, err
		}

		order := "f.object_type, f.dc_title"
		if sort := search.CompileSort(p.Sort, s.backend.Emitter()); sort != "" {
			order = sort + ", " + order
		}
		q := selectFrom(SelectFull) + " WHERE " + where + " ORDER BY " + order + limitClause(p.Start, p.Count)
		if res.Objects, err = s.queryObjects(ctx, q, SelectFull); err != nil {
			return nil, err
		}
	}

	if err = s.fillChildCounts(ctx, res.Objects); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Storage) fillChildCounts(ctx context.Context, objs []*cds.Object) error {
	for _, obj := range objs {
		c := obj.Container()
		if c == nil {
			continue
		}
		n, err := s.childCount(ctx, obj.ID, "")
		if err != nil {
			return err
		}
		c.ChildCount = n
	}
	return nil
}

// typeFilter returns the object type predicate for the item/container flags.
// Setting neither or both flags matches every child.
func typeFilter(flags BrowseFlag) string {
	items := flags&BrowseItems != 0
	containers := flags&BrowseContainers != 0
	switch {
	case items && !containers:
		return itemsOnly
	case containers && !items:
		return containersOnly
	}
	return ""
}

// limitClause renders a page window. OFFSET needs a LIMIT in every supported
// dialect, so an unbounded page with an offset uses the largest int64.
func limitClause(start, count int) string {
	if start < 0 {
		start = 0
	}
	switch {
	case count > 0:
		return " LIMIT " + intLiteral(int64(count)) + " OFFSET " + intLiteral(int64(start))
	case start > 0:
		return " LIMIT " + intLiteral(math.MaxInt64) + " OFFSET " + intLiteral(int64(start))
	}
	return ""
}
