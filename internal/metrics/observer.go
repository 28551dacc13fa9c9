package metrics

// EngineObserver records embedded database worker events into the Prometheus
// collectors declared in metrics.go. It satisfies sqlite.Observer without
// importing the storage packages.
type EngineObserver struct{}

// NewEngineObserver creates an observer for the sqlite worker engine.
func NewEngineObserver() *EngineObserver {
	return &EngineObserver{}
}

// ObserveTask records one executed task.
func (o *EngineObserver) ObserveTask(kind string, durationSeconds float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	WorkerTasksTotal.WithLabelValues(kind, status).Inc()
	WorkerTaskDuration.WithLabelValues(kind).Observe(durationSeconds)
}

// ObserveQueueDepth records the number of queued tasks.
func (o *EngineObserver) ObserveQueueDepth(depth int) {
	WorkerQueueDepth.Set(float64(depth))
}

// ObserveState marks state as the active engine state.
func (o *EngineObserver) ObserveState(state string) {
	for _, s := range []string{"starting", "ready", "shutting_down", "stopped"} {
		v := 0.0
		if s == state {
			v = 1
		}
		WorkerState.WithLabelValues(s).Set(v)
	}
}

// ObserveBackup records a backup or restore attempt.
func (o *EngineObserver) ObserveBackup(kind string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	BackupsTotal.WithLabelValues(kind, status).Inc()
}

// ObserveDirty records the backup contamination flag.
func (o *EngineObserver) ObserveDirty(dirty bool) {
	if dirty {
		BackupDirty.Set(1)
		return
	}
	BackupDirty.Set(0)
}
