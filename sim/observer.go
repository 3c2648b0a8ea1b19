package sim

//go:generate mockgen -destination=mocks/observer.go -package=mock_sim github.com/vkngwrapper/partsim/sim Observer

// Observer receives the outcome of every event applied by Simulator.Run, along with the state of the
// partition immediately after the event
type Observer interface {
	OnEvent(result Result, snapshot Snapshot)
}

// ObserverFunc adapts a function to the Observer interface
type ObserverFunc func(result Result, snapshot Snapshot)

func (f ObserverFunc) OnEvent(result Result, snapshot Snapshot) {
	f(result, snapshot)
}
