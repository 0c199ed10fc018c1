package bridge

import (
	"time"

	"github.com/naturalnetworks/sungrow-bridge/logger"
	"github.com/naturalnetworks/sungrow-bridge/metrics"
)

// Controller drives one poll-build-serialize-publish cycle. Run never
// propagates a failure: any step error is logged, counted and ends the cycle
// early, so a bad poll or a transient bus outage costs one data point, never
// the process. There is no retry inside a cycle; recovery is the next tick.
type Controller struct {
	source   ReadingSource
	bus      BusPublisher
	met      *metrics.Metrics
	identity string
	topic    string

	transform ReadingTransformer
	validate  ReadingValidator

	// Injected in tests for a fixed timecollected.
	now func() int64
}

// NewController wires the collaborators for the cycle.
func NewController(source ReadingSource, bus BusPublisher, met *metrics.Metrics, identity, topic string) *Controller {
	return &Controller{
		source:   source,
		bus:      bus,
		met:      met,
		identity: identity,
		topic:    topic,
		now:      func() int64 { return time.Now().Unix() },
	}
}

// SetTransformer installs an optional reading transform hook.
func (c *Controller) SetTransformer(t ReadingTransformer) {
	c.transform = t
}

// SetValidator installs an optional reading validator.
func (c *Controller) SetValidator(v ReadingValidator) {
	c.validate = v
}

// Run executes one cycle. It always returns normally.
func (c *Controller) Run() {
	c.met.Cycles.Inc()

	readings, err := c.source.GetData()
	if err != nil {
		c.fail("poll", err)
		return
	}
	now := c.now()
	c.met.ReadingsLastPoll.Set(float64(len(readings)))

	if c.validate != nil {
		for _, warning := range c.validate.Check(readings) {
			c.met.RangeViolations.Inc()
			logger.Warn("reading out of range: %s", warning)
		}
	}

	if c.transform != nil {
		readings, err = c.transform.Apply(readings)
		if err != nil {
			c.fail("transform", err)
			return
		}
	}

	record := Serialize(BuildPayload(readings, c.identity, now))

	if err := c.bus.Connect(); err != nil {
		c.fail("connect", err)
		return
	}
	defer c.bus.Disconnect()

	if err := c.bus.Publish(c.topic, record); err != nil {
		c.fail("publish", err)
		return
	}

	c.met.Publishes.Inc()
	logger.Debug("published %d fields to %s", len(readings)+2, c.topic)
}

func (c *Controller) fail(stage string, err error) {
	c.met.CycleFailures.WithLabelValues(stage).Inc()
	logger.Error("cycle abandoned at %s: %v", stage, err)
}
