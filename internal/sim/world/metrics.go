package world

// Metrics is a point-in-time operational summary, published after every tick
// and readable from any goroutine.
type Metrics struct {
	Tick        uint64
	Structures  int
	Operational int
	Clients     int
	StepMS      float64

	QueueDepths QueueDepths
}

type QueueDepths struct {
	Inbox int
	Join  int
	Leave int
}

func (w *World) Metrics() Metrics {
	m, _ := w.metrics.Load().(Metrics)
	return m
}

func (w *World) storeMetrics(nextTick uint64, stepMS float64) {
	w.metrics.Store(Metrics{
		Tick:        nextTick,
		Structures:  w.registry.Len(),
		Operational: len(w.registry.AllOperational()),
		Clients:     len(w.clients),
		StepMS:      stepMS,
		QueueDepths: QueueDepths{
			Inbox: len(w.inbox),
			Join:  len(w.join),
			Leave: len(w.leave),
		},
	})
}
