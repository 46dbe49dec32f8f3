package round

import (
	"coinedge/internal/event"
	"coinedge/internal/monitoring"
)

type Broadcaster interface {
	BroadcastEvent(topic string, data interface{})
}

// RegisterConsumers fans phase events out to every connected observer.
func RegisterConsumers(bus *event.Bus, hub Broadcaster) {

	bus.Subscribe(event.EventRoundBetting, func(payload interface{}) {
		hub.BroadcastEvent(event.EventRoundBetting, payload)
	})

	bus.Subscribe(event.EventRoundReveal, func(payload interface{}) {
		hub.BroadcastEvent(event.EventRoundReveal, payload)
	})

	bus.Subscribe(event.EventRoundFinished, func(payload interface{}) {
		monitoring.RoundsFinished.Inc()
		hub.BroadcastEvent(event.EventRoundFinished, payload)
	})

	bus.Subscribe(event.EventBetPlaced, func(payload interface{}) {
		hub.BroadcastEvent(event.EventBetPlaced, payload)
	})
}
