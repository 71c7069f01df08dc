package pipeline

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the prometheus counters mirroring the run statistics, so a
// long ingestion run can be watched from the ops endpoint while in flight.
type Metrics struct {
	itemsProcessed     prometheus.Counter
	itemsPersisted     prometheus.Counter
	itemsSkipped       prometheus.Counter
	itemsFailed        prometheus.Counter
	documentsPersisted prometheus.Counter
	documentsSkipped   prometheus.Counter
	documentsFailed    prometheus.Counter
	documentBytes      prometheus.Counter
}

// NewMetrics creates and registers the pipeline counters.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		itemsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_items_processed_total",
			Help: "Total number of catalog items processed.",
		}),
		itemsPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_items_persisted_total",
			Help: "Total number of drug records upserted.",
		}),
		itemsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_items_skipped_total",
			Help: "Total number of items skipped (not found or schema mismatch).",
		}),
		itemsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_items_failed_total",
			Help: "Total number of items that failed past the retry budget.",
		}),
		documentsPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_documents_persisted_total",
			Help: "Total number of document rows inserted.",
		}),
		documentsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_documents_skipped_total",
			Help: "Total number of documents skipped (missing, empty, or oversize).",
		}),
		documentsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_documents_failed_total",
			Help: "Total number of documents that failed to download or persist.",
		}),
		documentBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_document_bytes_total",
			Help: "Total bytes of document content persisted.",
		}),
	}

	for _, c := range []prometheus.Counter{
		m.itemsProcessed, m.itemsPersisted, m.itemsSkipped, m.itemsFailed,
		m.documentsPersisted, m.documentsSkipped, m.documentsFailed, m.documentBytes,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}
