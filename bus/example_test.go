package bus_test

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/coordops/bus"
)

func ExampleBus_Publish() {
	b := bus.New(bus.Config{})
	defer b.Close()

	unsub := b.Subscribe("plugin/*/ready", func(ctx context.Context, msg bus.Message) {
		fmt.Println("ready:", msg.Topic)
	})
	defer unsub()

	b.Publish(context.Background(), "plugin/vault/ready", nil)
	b.Publish(context.Background(), "plugin/neo4j/ready", nil)
	// Output:
	// ready: plugin/vault/ready
	// ready: plugin/neo4j/ready
}

func ExampleBus_Request() {
	b := bus.New(bus.Config{})
	defer b.Close()

	unsub := b.Subscribe("math/double", func(ctx context.Context, msg bus.Message) {
		n := msg.Payload.(int)
		b.Respond(ctx, msg.CorrelationID, n*2)
	})
	defer unsub()

	value, err := b.Request(context.Background(), "math/double", 21, time.Second)
	fmt.Println(value, err)
	// Output:
	// 42 <nil>
}

func ExampleBus_Subscribe_priority() {
	b := bus.New(bus.Config{})
	defer b.Close()

	b.Subscribe("deploy", func(ctx context.Context, msg bus.Message) {
		fmt.Println("deploy")
	})
	b.Subscribe("deploy", func(ctx context.Context, msg bus.Message) {
		fmt.Println("validate first")
	}, bus.WithPriority(-10))

	b.Publish(context.Background(), "deploy", nil)
	// Output:
	// validate first
	// deploy
}
