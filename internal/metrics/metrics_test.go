package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func value(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	return testutil.ToFloat64(c)
}

func TestMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"HTTPRequestsTotal", HTTPRequestsTotal},
		{"HTTPRequestDuration", HTTPRequestDuration},
		{"HTTPRequestsInFlight", HTTPRequestsInFlight},
		{"DBQueryTotal", DBQueryTotal},
		{"DBQueryDuration", DBQueryDuration},
		{"DBSizeBytes", DBSizeBytes},
		{"RemovalBatchSize", RemovalBatchSize},
		{"WorkerQueueDepth", WorkerQueueDepth},
		{"WorkerTasksTotal", WorkerTasksTotal},
		{"WorkerTaskDuration", WorkerTaskDuration},
		{"WorkerState", WorkerState},
		{"BackupsTotal", BackupsTotal},
		{"BackupDirty", BackupDirty},
		{"ObjectsTotal", ObjectsTotal},
		{"MimeTypesTotal", MimeTypesTotal},
		{"ContainerUpdatesTotal", ContainerUpdatesTotal},
		{"SearchCompileTotal", SearchCompileTotal},
		{"AppInfo", AppInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestInitializeMetrics(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("InitializeMetrics panicked: %v", r)
		}
	}()
	InitializeMetrics()
}

func TestEngineObserver(t *testing.T) {
	o := NewEngineObserver()

	before := value(t, WorkerTasksTotal.WithLabelValues("query", "error"))
	o.ObserveTask("query", 0.01, errors.New("boom"))
	if got := value(t, WorkerTasksTotal.WithLabelValues("query", "error")); got != before+1 {
		t.Errorf("query/error tasks = %v, want %v", got, before+1)
	}

	o.ObserveQueueDepth(7)
	if got := value(t, WorkerQueueDepth); got != 7 {
		t.Errorf("WorkerQueueDepth = %v, want 7", got)
	}

	o.ObserveState("ready")
	if got := value(t, WorkerState.WithLabelValues("ready")); got != 1 {
		t.Errorf("ready state = %v, want 1", got)
	}
	if got := value(t, WorkerState.WithLabelValues("stopped")); got != 0 {
		t.Errorf("stopped state = %v, want 0", got)
	}

	o.ObserveDirty(true)
	if got := value(t, BackupDirty); got != 1 {
		t.Errorf("BackupDirty = %v, want 1", got)
	}
	o.ObserveDirty(false)
	if got := value(t, BackupDirty); got != 0 {
		t.Errorf("BackupDirty = %v, want 0", got)
	}
}
