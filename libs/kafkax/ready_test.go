package kafkax

import (
	"context"
	"testing"
)

func TestReadyCheckWithoutBrokers(t *testing.T) {
	if err := ReadyCheck(" , ")(context.Background()); err == nil {
		t.Fatal("expected error when no brokers are configured")
	}
}
