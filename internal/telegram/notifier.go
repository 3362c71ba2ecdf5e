package telegram

import "context"

// Notifier glues the chat resolver and the sender pool into the one
// call the event consumer needs.
type Notifier struct {
	resolver   *Resolver
	dispatcher *Dispatcher
}

// NewNotifier returns a notifier over the given resolver and pool.
func NewNotifier(resolver *Resolver, dispatcher *Dispatcher) *Notifier {
	return &Notifier{resolver: resolver, dispatcher: dispatcher}
}

// Notify resolves the group and queues the text for delivery. An
// unresolvable group drops the message; the resolver already logged it.
func (n *Notifier) Notify(ctx context.Context, group, text string) {
	chatID, ok := n.resolver.Resolve(ctx, group)
	if !ok {
		return
	}
	n.dispatcher.Dispatch(Payload{ChatID: chatID, Text: text})
}
