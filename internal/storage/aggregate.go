package storage

import (
	"context"
	"fmt"
	"time"

	"media-directory/internal/cds"
	"media-directory/internal/metrics"
)

// ChildCount counts the live children of parentID. With both flags false
// every child is counted.
func (s *Storage) ChildCount(ctx context.Context, parentID int64, containers, items bool) (int64, error) {
	filter := ""
	switch {
	case containers && !items:
		filter = containersOnly
	case items && !containers:
		filter = itemsOnly
	}
	return s.childCount(ctx, parentID, filter)
}

func (s *Storage) childCount(ctx context.Context, parentID int64, filter string) (int64, error) {
	q := "SELECT COUNT(*) FROM " + ObjectTable + " f WHERE f.parent_id = " + intLiteral(parentID) +
		" AND f.id <> " + intLiteral(cds.IDInvalid)
	if filter != "" {
		q += " AND " + filter
	}
	return s.count(ctx, q)
}

func (s *Storage) count(ctx context.Context, q string) (int64, error) {
	rs, err := s.backend.Query(ctx, q)
	if err != nil {
		return 0, err
	}
	if rs.Len() == 0 {
		return 0, nil
	}
	return rs.Rows[0].Int64(0)
}

// MimeTypes lists the distinct MIME types in the catalog, sorted.
func (s *Storage) MimeTypes(ctx context.Context) (types []string, err error) {
	start := time.Now()
	defer func() { recordQuery("mime_types", start, err) }()

	rs, err := s.backend.Query(ctx, "SELECT DISTINCT mime_type FROM "+ObjectTable+
		" WHERE mime_type IS NOT NULL ORDER BY mime_type")
	if err != nil {
		return nil, err
	}
	types = make([]string, 0, rs.Len())
	for _, row := range rs.Rows {
		types = append(types, row.String(0))
	}
	return types, nil
}

// TotalFileCount counts the items that are not virtual.
func (s *Storage) TotalFileCount(ctx context.Context) (n int64, err error) {
	start := time.Now()
	defer func() { recordQuery("total_files", start, err) }()

	return s.count(ctx, "SELECT COUNT(*) FROM "+ObjectTable+" f WHERE "+itemsOnly+" AND f.is_virtual = 0")
}

// IncrementUpdateIDs bumps the update id of every container in ids.
func (s *Storage) IncrementUpdateIDs(ctx context.Context, ids []int64) (err error) {
	if len(ids) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { recordQuery("increment_update_ids", start, err) }()

	return s.backend.Exec(ctx, "UPDATE "+ObjectTable+" SET update_id = update_id + 1 WHERE id IN ("+
		idList(ids)+") AND (object_type & 1) = 1")
}

// InternalSetting reads a value from the settings table.
func (s *Storage) InternalSetting(ctx context.Context, key string) (value string, err error) {
	start := time.Now()
	defer func() { recordQuery("internal_setting", start, err) }()

	rs, err := s.backend.Query(ctx, "SELECT setting_value FROM "+SettingTable+
		" WHERE setting_name = "+s.backend.Quote(key))
	if err != nil {
		return "", err
	}
	if rs.Len() == 0 {
		return "", fmt.Errorf("setting %q: %w", key, ErrNotFound)
	}
	return rs.Rows[0].String(0), nil
}

// StoreInternalSetting writes a value to the settings table.
func (s *Storage) StoreInternalSetting(ctx context.Context, key, value string) (err error) {
	start := time.Now()
	defer func() { recordQuery("internal_setting", start, err) }()

	if err = s.backend.Exec(ctx, "DELETE FROM "+SettingTable+" WHERE setting_name = "+s.backend.Quote(key)); err != nil {
		return err
	}
	return s.backend.Exec(ctx, "INSERT INTO "+SettingTable+" (setting_name, setting_value) VALUES ("+
		s.backend.Quote(key)+", "+s.backend.Quote(value)+")")
}

// CollectStats returns catalog totals. Reserved containers are not counted.
func (s *Storage) CollectStats(ctx context.Context) (stats metrics.Stats, err error) {
	start := time.Now()
	defer func() { recordQuery("stats", start, err) }()

	rs, err := s.backend.Query(ctx, "SELECT "+
		"SUM(CASE WHEN (object_type & 1) = 1 THEN 1 ELSE 0 END), "+
		"SUM(CASE WHEN (object_type & 1) = 0 THEN 1 ELSE 0 END), "+
		"SUM(CASE WHEN is_virtual = 1 THEN 1 ELSE 0 END), "+
		"COUNT(DISTINCT mime_type) "+
		"FROM "+ObjectTable+" WHERE id > "+intLiteral(cds.IDFilesystemRoot))
	if err != nil {
		return stats, err
	}
	if rs.Len() == 0 {
		return stats, nil
	}

	row := rs.Rows[0]
	for i, dst := range []*int64{&stats.Containers, &stats.Items, &stats.Virtual, &stats.MimeTypes} {
		if *dst, err = row.Int64(i); err != nil {
			return stats, err
		}
	}
	return stats, nil
}
