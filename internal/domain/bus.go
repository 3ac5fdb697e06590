package domain

// MessageBus carries inbound chat events from transports to the worker loop
// and outbound replies back to the transport that owns the sender.
type MessageBus interface {
	Publish(msg InboundMessage)
	Subscribe() <-chan InboundMessage
	SendOutbound(msg OutboundMessage)
	OnOutbound(transport string, handler func(OutboundMessage))
	Close()
}
