package events

// Topic constants for domain events emitted by the bookstore.
const (
	TopicOrderCreated  = "order.created"
	TopicOrderPaid     = "order.paid"
	TopicPromoRedeemed = "promo.redeemed"
)

// DefaultTopics returns every topic the bus publishes.
func DefaultTopics() []string {
	return []string{
		TopicOrderCreated,
		TopicOrderPaid,
		TopicPromoRedeemed,
	}
}
