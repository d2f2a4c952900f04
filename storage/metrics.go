package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	uploadAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "memorylane",
		Name:      "image_upload_attempts_total",
		Help:      "Image store attempts by result.",
	}, []string{"result"})

	uploadsExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "memorylane",
		Name:      "image_upload_exhausted_total",
		Help:      "Image uploads that failed after all retries.",
	})
)
