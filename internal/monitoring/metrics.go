package monitoring

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// KubernetesLabels holds Kubernetes metadata labels
var (
	kubernetesNamespace = os.Getenv("KUBERNETES_NAMESPACE")
	kubernetesPodName   = os.Getenv("KUBERNETES_POD_NAME")
	helmReleaseName     = os.Getenv("HELM_RELEASE_NAME")
)

// getKubernetesLabels returns the Kubernetes labels for metrics
func getKubernetesLabels() prometheus.Labels {
	labels := prometheus.Labels{}

	if kubernetesNamespace != "" {
		labels["kubernetes_namespace"] = kubernetesNamespace
	}
	if kubernetesPodName != "" {
		labels["kubernetes_pod_name"] = kubernetesPodName
	}
	if helmReleaseName != "" {
		labels["helm_release"] = helmReleaseName
	}

	return labels
}

// Registry with Kubernetes labels
var (
	Registry = prometheus.NewRegistry()
	factory  = promauto.With(prometheus.WrapRegistererWith(getKubernetesLabels(), Registry))
)

// Prometheus metrics for the body ingest service
var (
	// HTTP Request metrics
	RequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bodyingest_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	RequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bodyingest_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	ActiveConnections = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "bodyingest_active_connections",
			Help: "Number of active connections",
		},
	)

	// Ingestion metrics
	IngestionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bodyingest_ingestions_total",
			Help: "Total number of body ingestions by content class and terminal outcome",
		},
		[]string{"class", "outcome"},
	)

	IngestedBytes = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bodyingest_ingested_bytes_total",
			Help: "Total body bytes counted against the size limit",
		},
		[]string{"class"},
	)

	IngestionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bodyingest_ingestion_duration_seconds",
			Help:    "Time from subscription to terminal outcome",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"class"},
	)

	UploadPartsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "bodyingest_upload_parts_total",
			Help: "Total number of multipart file parts registered",
		},
	)

	ActiveIngestions = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "bodyingest_active_ingestions",
			Help: "Number of bodies currently being ingested",
		},
	)

	// Server metrics
	ServerInfo = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bodyingest_server_info",
			Help: "Server build information",
		},
		[]string{"version", "commit", "build_time"},
	)
)

// SetServerInfo sets server build information
func SetServerInfo(version, commit, buildTime string) {
	ServerInfo.WithLabelValues(version, commit, buildTime).Set(1)
}

// RecordIngestion records the terminal outcome of one body ingestion
func RecordIngestion(class, outcome string, bytes int64, duration time.Duration) {
	IngestionsTotal.WithLabelValues(class, outcome).Inc()
	IngestedBytes.WithLabelValues(class).Add(float64(bytes))
	IngestionDuration.WithLabelValues(class).Observe(duration.Seconds())
}

// RecordUploadPart counts a registered multipart file part
func RecordUploadPart() {
	UploadPartsTotal.Inc()
}
