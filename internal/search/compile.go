package search

import (
	"strings"

	"media-directory/internal/logging"
)

// Compile parses criteria and renders it as a SQL predicate through e.
func Compile(criteria string, e Emitter) (string, error) {
	node, err := Parse(criteria)
	if err != nil {
		return "", err
	}
	return node.Emit(e)
}

// CompileSort turns UPnP sort criteria such as "+upnp:class,-dc:title" into an
// ORDER BY list. Keys without a sortable column are skipped, and a key without
// a direction sorts ascending. An empty result means no ordering was requested.
func CompileSort(criteria string, e Emitter) string {
	var terms []string
	for _, key := range strings.Split(criteria, ",") {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		dir := "ASC"
		switch key[0] {
		case '-':
			dir = "DESC"
			key = key[1:]
		case '+':
			key = key[1:]
		default:
			logging.Debug("Sort key %q has no direction, using ascending", key)
		}
		col, ok := e.SortColumn(key)
		if !ok {
			logging.Debug("Ignoring unknown sort key %q in %q", key, criteria)
			continue
		}
		terms = append(terms, col+" "+dir)
	}
	return strings.Join(terms, ", ")
}
