package redisx

import "time"

const (
	// Cached order read-back: order:detail:{order_id} -> full order JSON
	KeyOrderDetail = "order:detail:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLOrderDetail = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
