package mq_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/teamvault/pkg/configs"
	"github.com/yeisme/teamvault/pkg/internal/storage/mq"
)

// TestMemoryRouter 进程内队列经 Router 投递给处理器.
func TestMemoryRouter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := mq.New(ctx, &configs.MQConfig{Type: configs.MQTypeMemory}, false)
	if err != nil {
		t.Fatal(err)
	}

	defer client.Close()

	got := make(chan string, 1)

	client.AddHandler("test-handler", "tv.test.topic", func(msg *message.Message) error {
		got <- string(msg.Payload)
		return nil
	})

	go func() { _ = client.Run(ctx) }()

	select {
	case <-client.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("router did not start")
	}

	msg := message.NewMessage(watermill.NewUUID(), []byte("hello"))
	if err := client.Publish(ctx, "tv.test.topic", msg); err != nil {
		t.Fatal(err)
	}

	select {
	case v := <-got:
		if v != "hello" {
			t.Errorf("unexpected payload %q", v)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message not delivered")
	}
}

// TestUnsupportedType 未注册的类型返回错误.
func TestUnsupportedType(t *testing.T) {
	if _, err := mq.New(context.Background(), &configs.MQConfig{Type: "kafka"}, false); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}

// TestRegisteredTypes 内置三种实现.
func TestRegisteredTypes(t *testing.T) {
	types := mq.RegisteredTypes()
	if len(types) != 3 {
		t.Fatalf("expected 3 types, got %v", types)
	}
}

// TestHandlerRetry 处理器返回错误时按配置重试.
func TestHandlerRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := mq.New(ctx, &configs.MQConfig{
		Consumer: configs.MQConsumerConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond},
	}, false)
	if err != nil {
		t.Fatal(err)
	}

	defer client.Close()

	attempts := make(chan int, 8)
	n := 0

	client.AddHandler("flaky", "tv.test.retry", func(*message.Message) error {
		n++
		attempts <- n

		if n < 3 {
			return errors.New("transient")
		}

		return nil
	})

	if got := client.Handlers(); len(got) != 1 || got[0] != "flaky" {
		t.Fatalf("handlers = %v", got)
	}

	go func() { _ = client.Run(ctx) }()
	<-client.Running()

	if err := client.Publish(ctx, "tv.test.retry", message.NewMessage(watermill.NewUUID(), []byte("x"))); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)

	for {
		select {
		case v := <-attempts:
			if v == 3 {
				return
			}
		case <-deadline:
			t.Fatal("handler was not retried")
		}
	}
}
