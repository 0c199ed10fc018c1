package bridge

import "github.com/naturalnetworks/sungrow-bridge/sungrow"

// ReadingSource returns the current snapshot of named measurements from the
// device. Implemented by sungrow.Client; tests inject fakes.
type ReadingSource interface {
	GetData() (map[string]sungrow.Reading, error)
}

// BusPublisher delivers a serialized record to the message bus. Connect is
// expected to enforce a bounded timeout; it is the only timeout in the
// system.
type BusPublisher interface {
	Connect() error
	Publish(topic, payload string) error
	Disconnect()
}

// HeartbeatNotifier receives the liveness signal after every scheduler
// iteration. Fire-and-forget: implementations must not block or fail.
type HeartbeatNotifier interface {
	Notify(signal string)
}

// ReadingTransformer optionally adjusts the polled readings before the
// payload is built.
type ReadingTransformer interface {
	Apply(readings map[string]sungrow.Reading) (map[string]sungrow.Reading, error)
}

// ReadingValidator checks the polled readings and returns warnings for
// anomalous values. Warnings never abort a cycle.
type ReadingValidator interface {
	Check(readings map[string]sungrow.Reading) []string
}
