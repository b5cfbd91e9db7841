package queue

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/showdesk/internal/model"
)

// publishQueueSize bounds the events waiting for the broker.
const publishQueueSize = 256

// Publisher sends show events to RabbitMQ. It dials per publish, so a
// broker outage only costs the events emitted while it lasts. A single
// worker (Run) publishes in the order Notify was called.
type Publisher struct {
    url     string
    log     *logrus.Logger
    timeout time.Duration
    events  chan ShowChangedEvent
    send    func(ctx context.Context, event ShowChangedEvent) error
}

// NewPublisher returns a publisher for the broker at url. Nothing is sent
// until Run is started.
func NewPublisher(url string, log *logrus.Logger) *Publisher {
    p := &Publisher{
        url:     url,
        log:     log,
        timeout: 5 * time.Second,
        events:  make(chan ShowChangedEvent, publishQueueSize),
    }
    p.send = p.Publish
    return p
}

// Notify implements service.Notifier. It only enqueues, so a slow broker
// never delays the HTTP response; when the queue is full the event is
// dropped and logged.
func (p *Publisher) Notify(_ context.Context, ev model.ShowEvent) {
    select {
    case p.events <- FromShowEvent(ev):
    default:
        p.log.WithFields(logrus.Fields{"event": ev.Name, "show_id": ev.ShowID}).Warn("rabbitmq: publish queue full; event dropped")
    }
}

// Run publishes queued events one at a time until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) {
    for {
        select {
        case <-ctx.Done():
            return
        case ev := <-p.events:
            pctx, cancel := context.WithTimeout(ctx, p.timeout)
            _ = p.send(pctx, ev)
            cancel()
        }
    }
}

// Publish publishes event to the shows.events queue. Errors are logged
// and returned so the caller can choose to ignore them. Messages are
// marked as persistent.
func (p *Publisher) Publish(ctx context.Context, event ShowChangedEvent) error {
    fields := logrus.Fields{"event": event.Event, "show_id": event.ShowID}
    conn, err := amqp.Dial(p.url)
    if err != nil {
        p.log.WithError(err).WithFields(fields).Warn("rabbitmq: dial failed")
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        p.log.WithError(err).WithFields(fields).Warn("rabbitmq: channel open failed")
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        ShowEventsQueue, // name
        true,            // durable
        false,           // autoDelete
        false,           // exclusive
        false,           // noWait
        nil,             // args
    ); err != nil {
        p.log.WithError(err).WithFields(fields).Warn("rabbitmq: queue declare failed")
        return err
    }

    body, err := json.Marshal(event)
    if err != nil {
        p.log.WithError(err).WithFields(fields).Warn("rabbitmq: marshal event failed")
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Type:         event.Event,
        Body:         body,
    }

    if err := ch.PublishWithContext(ctx,
        "",              // default exchange
        ShowEventsQueue, // routing key = queue name
        false,           // mandatory
        false,           // immediate
        pub,
    ); err != nil {
        p.log.WithError(err).WithFields(fields).Warn("rabbitmq: publish failed")
        return err
    }
    p.log.WithFields(fields).Debug("rabbitmq: event published")
    return nil
}
