package core

import (
	"context"
	"fmt"
	"testing"
)

func benchmarkDeltaFanout(b *testing.B, recipients int) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	sender := NewClient("sender", 0)
	hub.RegisterClient(sender)
	sender.Commands <- joinCmd("bench", "sender", "")
	<-sender.Events

	clients := make([]*Client, 0, recipients)
	for i := 0; i < recipients; i++ {
		c := NewClient(fmt.Sprintf("c%d", i), recipients+8)
		hub.RegisterClient(c)
		c.Commands <- joinCmd("bench", c.ID, "")
		clients = append(clients, c)
	}

	// Wait until the target has seen the full roster, then drain everyone else.
	target := clients[0]
	for {
		ev := <-target.Events
		if ev.Kind == EventPresence && len(ev.Presence) == recipients+1 {
			break
		}
	}
	for _, c := range clients[1:] {
		go func(cl *Client) {
			for range cl.Events {
			}
		}(c)
	}
	go func() {
		for range sender.Events {
		}
	}()

	delta := []byte(`{"ops":[{"retain":5},{"insert":"x"}]}`)

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		sender.Commands <- &Command{Kind: CommandSendDelta, DocID: "bench", Delta: delta}
		<-target.Events
	}
}

func BenchmarkDeltaFanout_10(b *testing.B)  { benchmarkDeltaFanout(b, 10) }
func BenchmarkDeltaFanout_100(b *testing.B) { benchmarkDeltaFanout(b, 100) }
func BenchmarkDeltaFanout_500(b *testing.B) { benchmarkDeltaFanout(b, 500) }
