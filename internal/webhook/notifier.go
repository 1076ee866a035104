package webhook

// Notifier pushes real-time events about processed deliveries to connected
// dashboard clients
type Notifier interface {
	BroadcastMerchantEvent(merchantID string, eventType string, data interface{})
}
