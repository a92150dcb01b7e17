package events

// Topic constants for domain events emitted by the cart service.
const (
	TopicOrderSubmitted     = "order.submitted"
	TopicOrderNegativeTotal = "order.negative_total"
)

// DefaultTopics returns the canonical list of topics.
func DefaultTopics() []string {
	return []string{
		TopicOrderSubmitted,
		TopicOrderNegativeTotal,
	}
}
