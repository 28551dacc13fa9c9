package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, file := range []string{"main", "backup"} {
		DBSizeBytes.WithLabelValues(file)
	}

	for _, op := range []string{"add_object", "update_object", "load_object", "browse",
		"select_objects", "remove_object", "mime_types", "total_files", "search",
		"increment_update_ids", "find_object", "internal_setting", "stats"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, kind := range []string{"query", "exec", "exec_insert", "init", "backup", "restore"} {
		WorkerTasksTotal.WithLabelValues(kind, "success")
		WorkerTasksTotal.WithLabelValues(kind, "error")
		WorkerTaskDuration.WithLabelValues(kind)
	}

	for _, state := range []string{"starting", "ready", "shutting_down", "stopped"} {
		WorkerState.WithLabelValues(state)
	}

	for _, kind := range []string{"backup", "restore"} {
		BackupsTotal.WithLabelValues(kind, "success")
		BackupsTotal.WithLabelValues(kind, "error")
	}

	for _, kind := range []string{"container", "item", "virtual"} {
		ObjectsTotal.WithLabelValues(kind)
	}

	for _, status := range []string{"success", "lex_error", "parse_error", "error"} {
		SearchCompileTotal.WithLabelValues(status)
	}
}
