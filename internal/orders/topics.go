package orders

const (
	TopicOrderPlaced    = "order.placed"
	TopicOrderCompleted = "order.completed"
	TopicOrderCancelled = "order.cancelled"
)

// Partition key = order_id so all events of one order keep their order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
