package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics implements the observer interfaces of dispatch and engine.
type Metrics struct {
	sent      prometheus.Counter
	failed    prometheus.Counter
	responses prometheus.Counter
	scans     *prometheus.CounterVec
}

// NewMetrics registers boardbot's counters on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		sent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "boardbot_notifications_sent_total",
			Help: "Successful deliveries through the channel",
		}),
		failed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "boardbot_notifications_failed_total",
			Help: "Deliveries abandoned after retries or permanent failure",
		}),
		responses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "boardbot_responses_recorded_total",
			Help: "Recipient responses recorded (including overwrites)",
		}),
		scans: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "boardbot_scans_total",
			Help: "Periodic task runs by task kind",
		}, []string{"task"}),
	}
}

func (m *Metrics) DeliverySent()       { m.sent.Inc() }
func (m *Metrics) DeliveryFailed()     { m.failed.Inc() }
func (m *Metrics) ResponseRecorded()   { m.responses.Inc() }
func (m *Metrics) ScanRan(task string) { m.scans.WithLabelValues(task).Inc() }
