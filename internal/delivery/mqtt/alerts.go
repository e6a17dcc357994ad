package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fleetcore/backend/internal/domain"
	"github.com/fleetcore/backend/pkg/log"
)

const (
	alertQueueSize      = 256
	alertPublishTimeout = 5 * time.Second
)

type publisher interface {
	Publish(ctx context.Context, topic string, qos byte, retain bool, payload []byte) error
}

// AlertPublisher forwards geofence alerts to a broker topic. Alerts are
// queued so that a slow broker never stalls position processing; when the
// queue is full the alert is dropped and logged.
type AlertPublisher struct {
	pub    publisher
	topic  string
	queue  chan domain.GeofenceAlert
	logger log.Logger
}

func NewAlertPublisher(pub publisher, topic string, logger log.Logger) *AlertPublisher {
	return &AlertPublisher{
		pub:    pub,
		topic:  topic,
		queue:  make(chan domain.GeofenceAlert, alertQueueSize),
		logger: logger.WithName("alerts"),
	}
}

// Handle enqueues alert; it is meant to be registered as a geofence subscriber
func (p *AlertPublisher) Handle(alert domain.GeofenceAlert) {
	select {
	case p.queue <- alert:
	default:
		p.logger.Warn("alert queue full, dropping alert", "alert_id", alert.ID, "vehicle_id", alert.VehicleID)
	}
}

// Run publishes queued alerts until ctx is done
func (p *AlertPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case alert := <-p.queue:
			p.publish(ctx, alert)
		}
	}
}

func (p *AlertPublisher) publish(ctx context.Context, alert domain.GeofenceAlert) {
	payload, err := json.Marshal(alert)
	if err != nil {
		p.logger.Error(err, "failed to encode alert", "alert_id", alert.ID)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, alertPublishTimeout)
	defer cancel()

	if err := p.pub.Publish(ctx, p.topic, 1, false, payload); err != nil {
		p.logger.Error(err, "failed to publish alert", "alert_id", alert.ID, "topic", p.topic)
		return
	}
	p.logger.Debug("alert published", "alert_id", alert.ID, "topic", p.topic)
}
