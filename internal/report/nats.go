package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/nvandessel/reciprocity/internal/engine"
)

// flushTimeout bounds the wait for the server to acknowledge a final report.
const flushTimeout = 5 * time.Second

// NATSSink publishes reports as JSON envelopes on
// <prefix>.run.started, <prefix>.round and <prefix>.run.finished.
type NATSSink struct {
	conn   *nats.Conn
	prefix string
}

// DialNATS connects to url and returns a sink publishing under prefix.
func DialNATS(url, prefix string) (*NATSSink, error) {
	nc, err := nats.Connect(url,
		nats.Name("reciprocity"),
		nats.Timeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	return &NATSSink{conn: nc, prefix: prefix}, nil
}

// Subjects returns the subjects the sink publishes on, in delivery order.
func (n *NATSSink) Subjects() (started, round, finished string) {
	return n.prefix + ".run.started", n.prefix + ".round", n.prefix + ".run.finished"
}

func (n *NATSSink) publish(subject string, e Envelope) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding %s report: %w", e.Type, err)
	}
	if err := n.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}

// RunStarted implements engine.Sink.
func (n *NATSSink) RunStarted(_ context.Context, info engine.RunInfo) error {
	subject, _, _ := n.Subjects()
	return n.publish(subject, Envelope{Type: TypeRunStarted, Run: &info})
}

// RoundCompleted implements engine.Sink.
func (n *NATSSink) RoundCompleted(_ context.Context, r engine.RoundReport) error {
	_, subject, _ := n.Subjects()
	return n.publish(subject, Envelope{Type: TypeRound, Round: &r})
}

// RunFinished publishes the final report and flushes so it is on the wire
// before the run returns.
func (n *NATSSink) RunFinished(_ context.Context, r engine.RunReport) error {
	_, _, subject := n.Subjects()
	if err := n.publish(subject, Envelope{Type: TypeRunFinished, Result: &r}); err != nil {
		return err
	}
	return n.conn.FlushTimeout(flushTimeout)
}

// Close drains pending messages and closes the connection.
func (n *NATSSink) Close() error {
	return n.conn.Drain()
}

// StartEmbeddedNATS runs an in-process NATS server on host:port. A port of
// -1 picks a free port. The caller must call Shutdown on the result.
func StartEmbeddedNATS(host string, port int) (*server.Server, error) {
	ns, err := server.NewServer(&server.Options{
		Host:   host,
		Port:   port,
		NoLog:  true,
		NoSigs: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating NATS server: %w", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server on %s:%d not ready", host, port)
	}
	return ns, nil
}
