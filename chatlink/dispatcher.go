package chatlink

// Dispatcher routes session events to registered callbacks. Callbacks are
// invoked sequentially, never concurrently with each other, in transport
// delivery order. Register callbacks before Open; a nil callback is skipped.
type Dispatcher struct {
	onMessage     func(ChatMessage)
	onConnect     func()
	onDisconnect  func()
	onError       func(error)
	onStateChange func(StateEvent)
}

func (d *Dispatcher) SetOnMessage(fn func(ChatMessage))    { d.onMessage = fn }
func (d *Dispatcher) SetOnConnect(fn func())               { d.onConnect = fn }
func (d *Dispatcher) SetOnDisconnect(fn func())            { d.onDisconnect = fn }
func (d *Dispatcher) SetOnError(fn func(error))            { d.onError = fn }
func (d *Dispatcher) SetOnStateChange(fn func(StateEvent)) { d.onStateChange = fn }

func (d *Dispatcher) fireMessage(msg ChatMessage) {
	if d.onMessage != nil {
		d.onMessage(msg)
	}
}

func (d *Dispatcher) fireConnect() {
	if d.onConnect != nil {
		d.onConnect()
	}
}

func (d *Dispatcher) fireDisconnect() {
	if d.onDisconnect != nil {
		d.onDisconnect()
	}
}

func (d *Dispatcher) fireError(err error) {
	if d.onError != nil && err != nil {
		d.onError(err)
	}
}

func (d *Dispatcher) fireStateChange(ev StateEvent) {
	if d.onStateChange != nil {
		d.onStateChange(ev)
	}
}
