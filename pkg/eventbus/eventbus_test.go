package eventbus

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/iota-uz/nero/modules/core/domain/entities/tenant"
	"github.com/iota-uz/nero/pkg/logging"
	"github.com/sirupsen/logrus"
)

func TestPublisher_Publish_NoSubscribers(t *testing.T) {
	logBuffer := bytes.Buffer{}
	log := logrus.New()
	log.SetOutput(&logBuffer)
	log.SetLevel(logrus.WarnLevel)

	publisher := NewEventPublisher(log)
	publisher.Subscribe(func(e *tenant.DeletedEvent) {
		t.Error("should not be called")
	})
	publisher.Publish(&tenant.CreatedEvent{})

	if output := logBuffer.String(); output == "" {
		t.Error("should have logged")
	} else if !strings.Contains(output, "eventbus.Publish: no matching subscribers") {
		t.Errorf("should have contained no matching subscribers but got: %q", output)
	}
}

func TestPublisher_Subscribe(t *testing.T) {
	publisher := NewEventPublisher(logging.ConsoleLogger(logrus.WarnLevel))
	tenantID := uuid.New()

	called := false
	var got uuid.UUID
	publisher.Subscribe(func(e *tenant.StateChangedEvent) {
		called = true
		got = e.TenantID
	})
	publisher.Publish(&tenant.StateChangedEvent{
		TenantID: tenantID,
		From:     tenant.StateActive,
		To:       tenant.StateSuspended,
	})

	if !called {
		t.Error("should be called")
	}
	if got != tenantID {
		t.Errorf("expected: %v, got: %v", tenantID, got)
	}
}

func TestPublisher_Unsubscribe(t *testing.T) {
	publisher := NewEventPublisher(logging.ConsoleLogger(logrus.PanicLevel))

	handler := func(e *tenant.CreatedEvent) {
		t.Error("should not be called after unsubscribe")
	}
	publisher.Subscribe(handler)
	if publisher.SubscribersCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", publisher.SubscribersCount())
	}

	publisher.Unsubscribe(handler)

	if publisher.SubscribersCount() != 0 {
		t.Fatalf("expected 0 subscribers, got %d", publisher.SubscribersCount())
	}
}

func TestPublisher_RecoversFromPanickingHandler(t *testing.T) {
	logBuffer := bytes.Buffer{}
	log := logrus.New()
	log.SetOutput(&logBuffer)

	publisher := NewEventPublisher(log)
	publisher.Subscribe(func(e *tenant.CreatedEvent) {
		panic("boom")
	})

	publisher.Publish(&tenant.CreatedEvent{})

	if output := logBuffer.String(); !strings.Contains(output, "panicked") {
		t.Errorf("expected panic to be logged, got: %q", output)
	}
}
