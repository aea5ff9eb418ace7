package core

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAddMemberBroadcastsToWholeRoom(t *testing.T) {
	reg := NewRegistry(nil)
	a := NewClient("a", 4)
	b := NewClient("b", 4)

	reg.AddMember("doc1", a, User{UID: "u1", Email: "a@x"})
	roster := reg.AddMember("doc1", b, User{UID: "u2", Email: "b@x"})
	require.Equal(t, []string{"u1", "u2"}, roster.UIDs())

	// a sees both rosters, b only the one that includes itself.
	require.Len(t, a.Events, 2)
	require.Len(t, b.Events, 1)
	ev := <-b.Events
	assert.Equal(t, EventPresence, ev.Kind)
	assert.Equal(t, "doc1", ev.DocID)
	assert.Equal(t, roster, ev.Presence)
}

func TestRegistryAddMemberIsIdempotent(t *testing.T) {
	reg := NewRegistry(nil)
	a := NewClient("a", 8)

	reg.AddMember("doc1", a, User{UID: "u1"})
	reg.AddMember("doc1", a, User{UID: "u1", Email: "a@x"})

	members := reg.Members("doc1")
	require.Len(t, members, 1)
	assert.Equal(t, "a@x", members[0].Email)
	assert.Equal(t, 1, reg.EnsureRoom("doc1").Len())
}

func TestRegistryRemoveMemberPrunesEmptyRoom(t *testing.T) {
	reg := NewRegistry(nil)
	a := NewClient("a", 8)
	b := NewClient("b", 8)

	reg.AddMember("doc1", a, User{UID: "u1"})
	reg.AddMember("doc1", b, User{UID: "u2"})
	require.Equal(t, 1, reg.Len())

	roster, removed := reg.RemoveMember("doc1", "a")
	require.True(t, removed)
	assert.Equal(t, []string{"u2"}, roster.UIDs())
	assert.Equal(t, 1, reg.Len())

	_, removed = reg.RemoveMember("doc1", "b")
	require.True(t, removed)
	assert.Equal(t, 0, reg.Len())
	assert.Empty(t, reg.Snapshot())
}

func TestRegistryRemoveMemberIsIdempotent(t *testing.T) {
	reg := NewRegistry(nil)
	a := NewClient("a", 8)
	b := NewClient("b", 8)

	reg.AddMember("doc1", a, User{UID: "u1"})
	reg.AddMember("doc1", b, User{UID: "u2"})
	for len(a.Events) > 0 {
		<-a.Events
	}

	_, removed := reg.RemoveMember("doc1", "ghost")
	assert.False(t, removed)
	_, removed = reg.RemoveMember("nowhere", "a")
	assert.False(t, removed)

	assert.Empty(t, a.Events, "no-op removal must not broadcast")
	assert.Equal(t, []string{"u1", "u2"}, reg.Members("doc1").UIDs())
}

func TestRegistryMembersDeduplicatesInFirstSeenOrder(t *testing.T) {
	reg := NewRegistry(nil)

	users := []User{
		{UID: "u3", Email: "c@x"},
		{UID: "u1", Email: "a@x"},
		{UID: "u3", Email: "c2@x"},
		{UID: "u2", Email: "b@x"},
		{UID: "u1", Email: "a2@x"},
	}
	for i, u := range users {
		reg.AddMember("doc1", NewClient(fmt.Sprintf("c%d", i), 8), u)
	}

	members := reg.Members("doc1")
	assert.Equal(t, []string{"u3", "u1", "u2"}, members.UIDs())
	assert.Equal(t, "c@x", members[0].Email)
	assert.Empty(t, reg.Members("doc2"))
}

func TestRegistryRelayExcludesSender(t *testing.T) {
	reg := NewRegistry(nil)
	a := NewClient("a", 8)
	b := NewClient("b", 8)
	c := NewClient("c", 8)
	outsider := NewClient("o", 8)

	reg.AddMember("doc1", a, User{UID: "u1"})
	reg.AddMember("doc1", b, User{UID: "u2"})
	reg.AddMember("doc1", c, User{UID: "u3"})
	reg.AddMember("doc2", outsider, User{UID: "u4"})
	for _, cl := range []*Client{a, b, c, outsider} {
		for len(cl.Events) > 0 {
			<-cl.Events
		}
	}

	delivered, ok := reg.Relay("doc1", a, &Event{Kind: EventReceiveDelta, Delta: []byte("d")})
	require.True(t, ok)
	assert.Equal(t, 2, delivered)
	assert.Empty(t, a.Events)
	assert.Len(t, b.Events, 1)
	assert.Len(t, c.Events, 1)
	assert.Empty(t, outsider.Events)

	_, ok = reg.Relay("doc1", outsider, &Event{Kind: EventUserTyping})
	assert.False(t, ok, "non-members cannot relay into a room")
	_, ok = reg.Relay("missing", a, &Event{Kind: EventUserTyping})
	assert.False(t, ok)
}

func TestRegistrySlowConsumerDoesNotBlock(t *testing.T) {
	reg := NewRegistry(nil)
	slow := NewClient("slow", 1)
	fast := NewClient("fast", 16)

	reg.AddMember("doc1", slow, User{UID: "u1"})
	reg.AddMember("doc1", fast, User{UID: "u2"})

	for n := 0; n < 5; n++ {
		_, ok := reg.Relay("doc1", fast, &Event{Kind: EventUserTyping})
		require.True(t, ok)
	}
	assert.Len(t, slow.Events, 1)
}

func TestRegistryConcurrentChurn(t *testing.T) {
	reg := NewRegistry(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc := fmt.Sprintf("doc%d", i%5)
			c := NewClient(fmt.Sprintf("c%d", i), 256)
			for n := 0; n < 20; n++ {
				reg.AddMember(doc, c, User{UID: fmt.Sprintf("u%d", i)})
				reg.Relay(doc, c, &Event{Kind: EventReceiveDelta, Delta: []byte("x")})
				reg.RemoveMember(doc, c.ID)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, reg.Len())
}
