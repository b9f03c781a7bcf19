package kafkax

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestEventMessage_CarriesMetaAndTrace(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	const parent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), propagation.MapCarrier{"traceparent": parent})

	msg := EventMessage(ctx, EventMeta{EventID: "evt-1", EventType: "booking.reservation.created.v1"}, "bk-1", []byte(`{}`))
	if msg.Topic != "booking.reservation.created.v1" || string(msg.Key) != "bk-1" {
		t.Fatalf("unexpected routing %s/%s", msg.Topic, msg.Key)
	}
	if HeaderValue(msg.Headers, HeaderEventID) != "evt-1" || HeaderValue(msg.Headers, HeaderEventType) != msg.Topic {
		t.Fatalf("unexpected headers %v", msg.Headers)
	}
	if got := HeaderValue(msg.Headers, "traceparent"); got != parent {
		t.Fatalf("trace context not injected: %q", got)
	}
}

func TestInjectTraceHeaders_ReplacesExisting(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	const parent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), propagation.MapCarrier{"traceparent": parent})

	headers := InjectTraceHeaders(ctx, []kafka.Header{{Key: "traceparent", Value: []byte("stale")}})
	if len(headers) != 1 || string(headers[0].Value) != parent {
		t.Fatalf("unexpected headers %v", headers)
	}
}

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" kafka:9092, ,kafka-2:9092")
	if len(got) != 2 || got[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers %v", got)
	}
}
