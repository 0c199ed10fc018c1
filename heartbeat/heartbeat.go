package heartbeat

import (
	"net"

	"github.com/naturalnetworks/sungrow-bridge/logger"
)

// UDPNotifier sends the liveness signal as a single datagram to a supervisor
// address. Fire-and-forget: delivery failures are logged at debug level and
// otherwise ignored, since a missed heartbeat must never disturb the poll
// loop.
type UDPNotifier struct {
	addr string
}

// NewUDP creates a notifier targeting addr (host:port).
func NewUDP(addr string) *UDPNotifier {
	return &UDPNotifier{addr: addr}
}

// Notify sends signal to the supervisor.
func (n *UDPNotifier) Notify(signal string) {
	conn, err := net.Dial("udp", n.addr)
	if err != nil {
		logger.Debug("heartbeat dial failed: %v", err)
		return
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(signal)); err != nil {
		logger.Debug("heartbeat send failed: %v", err)
	}
}

// Noop discards liveness signals. Used when no heartbeat address is
// configured.
type Noop struct{}

// Notify does nothing.
func (Noop) Notify(string) {}
