package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	FeedbackCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feedback_created_total",
		Help: "Feedback items submitted",
	})
	UpvoteTogglesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upvote_toggles_total",
		Help: "Upvote toggles by resulting direction",
	}, []string{"direction"})
	StoreErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "store_errors_total",
		Help: "Unexpected store failures by operation",
	}, []string{"operation"})
)

// Register adds all service metrics to the default registry.
func Register() {
	prometheus.MustRegister(
		FeedbackCreatedTotal,
		UpvoteTogglesTotal,
		StoreErrorsTotal,
	)
}
