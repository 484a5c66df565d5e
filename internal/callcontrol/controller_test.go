package callcontrol

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/havenline/callcore/internal/gossip"
	"github.com/havenline/callcore/internal/media"
	"github.com/havenline/callcore/internal/rtc"
	"github.com/havenline/callcore/internal/wire"
	"github.com/havenline/callcore/pkg/identity"
)

// fakeBroker is an in-memory pubsub bus shared by every simulated node in a
// test, standing in for the libp2p mesh that would otherwise carry these
// messages. Each node gets its own nodeTransport bound to its own peer id,
// so a published frame is tagged with the real publishing node the way a
// libp2p host would tag it.
type fakeBroker struct {
	mu   sync.Mutex
	subs map[string][]*fakeSubscription
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{subs: make(map[string][]*fakeSubscription)}
}

func (b *fakeBroker) publish(topic string, from []byte, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs[topic] {
		sub.deliver(gossip.IncomingMessage{From: from, Data: data})
	}
}

func (b *fakeBroker) subscribe(topic string) *fakeSubscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := &fakeSubscription{ch: make(chan gossip.IncomingMessage, 32)}
	b.subs[topic] = append(b.subs[topic], sub)
	return sub
}

type fakeSubscription struct {
	mu     sync.Mutex
	ch     chan gossip.IncomingMessage
	closed bool
}

func (s *fakeSubscription) deliver(msg gossip.IncomingMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- msg:
	default:
	}
}

func (s *fakeSubscription) Next(ctx context.Context) (gossip.IncomingMessage, error) {
	select {
	case msg := <-s.ch:
		return msg, nil
	case <-ctx.Done():
		return gossip.IncomingMessage{}, ctx.Err()
	}
}

func (s *fakeSubscription) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

type nodeTransport struct {
	broker *fakeBroker
	selfID []byte
}

func (t *nodeTransport) Publish(ctx context.Context, topic string, data []byte) error {
	t.broker.publish(topic, t.selfID, data)
	return nil
}

func (t *nodeTransport) Subscribe(ctx context.Context, topic string) (gossip.Subscription, error) {
	return t.broker.subscribe(topic), nil
}

// testNode bundles everything a single simulated participant needs: its own
// identity, its own view of the shared broker, and a fully-wired Controller.
type testNode struct {
	id       *identity.Identity
	sender   *gossip.Sender
	listener *gossip.Listener
	rtcCtl   *rtc.Controller
	pipeline *media.Pipeline
	ctl      *Controller
}

func newTestNode(t *testing.T, broker *fakeBroker) *testNode {
	t.Helper()
	id, err := identity.New()
	if err != nil {
		t.Fatalf("new identity: %v", err)
	}
	transport := &nodeTransport{broker: broker, selfID: []byte(id.GetOwnID())}
	sender := gossip.NewSender(transport, id)
	listener := gossip.NewListener(transport, sender)
	rtcCtl, err := rtc.NewController("stun:stun.l.google.com:19302")
	if err != nil {
		t.Fatalf("new rtc controller: %v", err)
	}
	pipeline := media.NewPipeline(media.NewDummySinkDevice(media.DeviceProperties{SampleRate: 48000, NumChannels: 1}))
	sourceDevice := media.NewDummySourceDevice(media.DeviceProperties{SampleRate: 48000, NumChannels: 1})
	ctl := NewController(sender, listener, rtcCtl, pipeline, sourceDevice)
	return &testNode{id: id, sender: sender, listener: listener, rtcCtl: rtcCtl, pipeline: pipeline, ctl: ctl}
}

func (n *testNode) close() {
	n.ctl.Close()
	n.listener.Close()
	n.sender.Close()
}

func waitForEvent(t *testing.T, events chan Event, kind EventKind) Event {
	t.Helper()
	for {
		select {
		case ev := <-events:
			if ev.Kind == kind {
				return ev
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event kind %v", kind)
		}
	}
}

func newGroupKey() [32]byte {
	var key [32]byte
	copy(key[:], []byte("0123456789abcdef0123456789abcde"))
	return key
}

func TestOfferCallActivatesAndSendsInitiation(t *testing.T) {
	broker := newFakeBroker()
	alice := newTestNode(t, broker)
	defer alice.close()
	bob := newTestNode(t, broker)
	defer bob.close()

	info := CallInfo{
		CallID:       uuid.New(),
		Participants: []identity.PeerID{alice.id.GetOwnID(), bob.id.GetOwnID()},
		GroupKey:     newGroupKey(),
	}
	if err := alice.ctl.OfferCall(info); err != nil {
		t.Fatalf("offer call: %v", err)
	}

	got, err := alice.ctl.GetActiveCallInfo()
	if err != nil {
		t.Fatalf("get active call info: %v", err)
	}
	if got.CallID != info.CallID {
		t.Fatalf("active call id mismatch: got %v, want %v", got.CallID, info.CallID)
	}

	ev := waitForEvent(t, bob.ctl.Events, EventIncomingCall)
	if ev.CallID != info.CallID {
		t.Fatalf("incoming call id mismatch: got %v, want %v", ev.CallID, info.CallID)
	}
	if ev.Sender != alice.id.GetOwnID() {
		t.Fatalf("incoming call sender mismatch: got %v, want %v", ev.Sender, alice.id.GetOwnID())
	}

	pending := bob.ctl.GetPendingCalls()
	if len(pending) != 1 || pending[0].CallID != info.CallID {
		t.Fatalf("unexpected pending calls on bob: %+v", pending)
	}
}

func TestAnswerCallUnknownReturnsErrCallNotFound(t *testing.T) {
	broker := newFakeBroker()
	alice := newTestNode(t, broker)
	defer alice.close()

	if err := alice.ctl.AnswerCall(uuid.New()); err != ErrCallNotFound {
		t.Fatalf("got %v, want ErrCallNotFound", err)
	}
}

func TestAnswerCallActivatesAndBroadcastsJoin(t *testing.T) {
	broker := newFakeBroker()
	alice := newTestNode(t, broker)
	defer alice.close()
	bob := newTestNode(t, broker)
	defer bob.close()

	info := CallInfo{
		CallID:       uuid.New(),
		Participants: []identity.PeerID{alice.id.GetOwnID(), bob.id.GetOwnID()},
		GroupKey:     newGroupKey(),
	}
	if err := alice.ctl.OfferCall(info); err != nil {
		t.Fatalf("offer call: %v", err)
	}
	waitForEvent(t, bob.ctl.Events, EventIncomingCall)

	if err := bob.ctl.AnswerCall(info.CallID); err != nil {
		t.Fatalf("answer call: %v", err)
	}
	got, err := bob.ctl.GetActiveCallInfo()
	if err != nil {
		t.Fatalf("get active call info: %v", err)
	}
	if got.CallID != info.CallID {
		t.Fatalf("bob active call mismatch: got %v, want %v", got.CallID, info.CallID)
	}

	// Alice observes bob's Join broadcast on the call-wide topic. She offered
	// the call, so she is active in it: the Join adds bob to her joined set
	// and also makes her Dial him, so this confirms that Dial doesn't block
	// her reactor from recording the Join.
	state, err := alice.ctl.GetActiveCallState()
	if err != nil {
		t.Fatalf("get active call state: %v", err)
	}
	// Poll briefly: delivery of Join is asynchronous across the fake broker.
	deadline := time.Now().Add(2 * time.Second)
	for {
		state, err = alice.ctl.GetActiveCallState()
		if err != nil {
			t.Fatalf("get active call state: %v", err)
		}
		if _, joined := state.Joined[bob.id.GetOwnID()]; joined {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("bob never appeared in alice's joined set: %+v", state.Joined)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestLeaveCallDefaultsToActiveAndEmitsTerminated(t *testing.T) {
	broker := newFakeBroker()
	alice := newTestNode(t, broker)
	defer alice.close()

	info := CallInfo{
		CallID:       uuid.New(),
		Participants: []identity.PeerID{alice.id.GetOwnID()},
		GroupKey:     newGroupKey(),
	}
	if err := alice.ctl.OfferCall(info); err != nil {
		t.Fatalf("offer call: %v", err)
	}
	if err := alice.ctl.LeaveCall(nil); err != nil {
		t.Fatalf("leave call: %v", err)
	}
	waitForEvent(t, alice.ctl.Events, EventCallTerminated)

	if _, err := alice.ctl.GetActiveCallInfo(); err != ErrCallNotInProgress {
		t.Fatalf("got %v, want ErrCallNotInProgress", err)
	}
	if _, err := alice.ctl.GetCallInfo(info.CallID); err != ErrCallNotFound {
		t.Fatalf("got %v, want ErrCallNotFound", err)
	}
}

func TestLeaveCallWithNoActiveCallIsAbsorbed(t *testing.T) {
	broker := newFakeBroker()
	alice := newTestNode(t, broker)
	defer alice.close()

	if err := alice.ctl.LeaveCall(nil); err != nil {
		t.Fatalf("leave call with nothing active: %v", err)
	}
}

func TestMuteSelfRequiresActiveCall(t *testing.T) {
	broker := newFakeBroker()
	alice := newTestNode(t, broker)
	defer alice.close()

	if err := alice.ctl.MuteSelf(); err != ErrCallNotInProgress {
		t.Fatalf("got %v, want ErrCallNotInProgress", err)
	}
}

func TestMuteSelfUpdatesStateAndBroadcasts(t *testing.T) {
	broker := newFakeBroker()
	alice := newTestNode(t, broker)
	defer alice.close()
	bob := newTestNode(t, broker)
	defer bob.close()

	info := CallInfo{
		CallID:       uuid.New(),
		Participants: []identity.PeerID{alice.id.GetOwnID(), bob.id.GetOwnID()},
		GroupKey:     newGroupKey(),
	}
	if err := alice.ctl.OfferCall(info); err != nil {
		t.Fatalf("offer call: %v", err)
	}
	waitForEvent(t, bob.ctl.Events, EventIncomingCall)
	if err := bob.ctl.AnswerCall(info.CallID); err != nil {
		t.Fatalf("answer call: %v", err)
	}

	if err := alice.ctl.MuteSelf(); err != nil {
		t.Fatalf("mute self: %v", err)
	}
	state, err := alice.ctl.GetActiveCallState()
	if err != nil {
		t.Fatalf("get active call state: %v", err)
	}
	if !state.Participants[alice.id.GetOwnID()].Muted {
		t.Fatalf("alice's own participant state should be muted")
	}

	waitForEvent(t, bob.ctl.Events, EventParticipantMuted)

	if err := alice.ctl.UnmuteSelf(); err != nil {
		t.Fatalf("unmute self: %v", err)
	}
	waitForEvent(t, bob.ctl.Events, EventParticipantUnmuted)
}

func TestSilenceCallUpdatesStateAndBroadcasts(t *testing.T) {
	broker := newFakeBroker()
	alice := newTestNode(t, broker)
	defer alice.close()
	bob := newTestNode(t, broker)
	defer bob.close()

	info := CallInfo{
		CallID:       uuid.New(),
		Participants: []identity.PeerID{alice.id.GetOwnID(), bob.id.GetOwnID()},
		GroupKey:     newGroupKey(),
	}
	if err := alice.ctl.OfferCall(info); err != nil {
		t.Fatalf("offer call: %v", err)
	}
	waitForEvent(t, bob.ctl.Events, EventIncomingCall)
	if err := bob.ctl.AnswerCall(info.CallID); err != nil {
		t.Fatalf("answer call: %v", err)
	}

	if err := bob.ctl.SilenceCall(); err != nil {
		t.Fatalf("silence call: %v", err)
	}
	waitForEvent(t, alice.ctl.Events, EventParticipantDeafened)

	if err := bob.ctl.UnsilenceCall(); err != nil {
		t.Fatalf("unsilence call: %v", err)
	}
	waitForEvent(t, alice.ctl.Events, EventParticipantUndeafened)
}

func TestRecordCallRequiresActiveCall(t *testing.T) {
	broker := newFakeBroker()
	alice := newTestNode(t, broker)
	defer alice.close()

	if err := alice.ctl.RecordCall(t.TempDir()); err != ErrCallNotInProgress {
		t.Fatalf("got %v, want ErrCallNotInProgress", err)
	}
	if err := alice.ctl.StopRecording(); err != ErrCallNotInProgress {
		t.Fatalf("got %v, want ErrCallNotInProgress", err)
	}
}

func TestRecordCallUpdatesStateAndBroadcasts(t *testing.T) {
	broker := newFakeBroker()
	alice := newTestNode(t, broker)
	defer alice.close()
	bob := newTestNode(t, broker)
	defer bob.close()

	info := CallInfo{
		CallID:       uuid.New(),
		Participants: []identity.PeerID{alice.id.GetOwnID(), bob.id.GetOwnID()},
		GroupKey:     newGroupKey(),
	}
	if err := alice.ctl.OfferCall(info); err != nil {
		t.Fatalf("offer call: %v", err)
	}
	waitForEvent(t, bob.ctl.Events, EventIncomingCall)
	if err := bob.ctl.AnswerCall(info.CallID); err != nil {
		t.Fatalf("answer call: %v", err)
	}

	if err := alice.ctl.RecordCall(t.TempDir()); err != nil {
		t.Fatalf("record call: %v", err)
	}
	waitForEvent(t, bob.ctl.Events, EventParticipantRecording)

	if err := alice.ctl.StopRecording(); err != nil {
		t.Fatalf("stop recording: %v", err)
	}
	waitForEvent(t, bob.ctl.Events, EventParticipantNotRecording)
}

// TestCallSignalFromOutsideRosterIsDiscarded confirms an attacker (or a stale
// peer) who isn't in a call's participant list cannot inject roster state by
// publishing on its call-wide topic.
func TestCallSignalFromOutsideRosterIsDiscarded(t *testing.T) {
	broker := newFakeBroker()
	alice := newTestNode(t, broker)
	defer alice.close()
	outsider := newTestNode(t, broker)
	defer outsider.close()

	info := CallInfo{
		CallID:       uuid.New(),
		Participants: []identity.PeerID{alice.id.GetOwnID()},
		GroupKey:     newGroupKey(),
	}
	if err := alice.ctl.OfferCall(info); err != nil {
		t.Fatalf("offer call: %v", err)
	}

	payload, err := wire.EncodeCallSignal(wire.CallSignal{Kind: wire.CallSignalJoin})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	outsider.sender.SendAES(info.GroupKey, payload, gossip.CallTopic(info.CallID))

	select {
	case ev := <-alice.ctl.Events:
		t.Fatalf("expected no event from outsider's signal, got %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}

	state, err := alice.ctl.GetActiveCallState()
	if err != nil {
		t.Fatalf("get active call state: %v", err)
	}
	if _, joined := state.Joined[outsider.id.GetOwnID()]; joined {
		t.Fatalf("outsider should not appear in joined set")
	}
}

// TestLeaveCallOnPendingDrainsJoinedAndCancels covers CallSignalLeave when
// the departing peer leaves a call that was never activated locally: once
// the joined set empties out, the call is dropped and CallCancelled fires.
// Alice never answers, so she only ever observes roster bookkeeping, never
// a Dial.
func TestLeaveCallOnPendingDrainsJoinedAndCancels(t *testing.T) {
	broker := newFakeBroker()
	alice := newTestNode(t, broker)
	defer alice.close()
	bob := newTestNode(t, broker)
	defer bob.close()
	carol := newTestNode(t, broker)
	defer carol.close()

	info := CallInfo{
		CallID:       uuid.New(),
		Participants: []identity.PeerID{alice.id.GetOwnID(), bob.id.GetOwnID(), carol.id.GetOwnID()},
		GroupKey:     newGroupKey(),
	}
	if err := bob.ctl.OfferCall(info); err != nil {
		t.Fatalf("offer call: %v", err)
	}
	waitForEvent(t, alice.ctl.Events, EventIncomingCall)
	waitForEvent(t, carol.ctl.Events, EventIncomingCall)

	// Carol answers, becoming active and broadcasting Join; bob (the
	// offeror) is active too and dials her in response.
	if err := carol.ctl.AnswerCall(info.CallID); err != nil {
		t.Fatalf("carol answer call: %v", err)
	}

	// Carol is now the only joined participant from alice's point of view.
	// When she leaves, alice's joined set drains to empty and the call is
	// dropped as cancelled.
	if err := carol.ctl.LeaveCall(nil); err != nil {
		t.Fatalf("carol leave call: %v", err)
	}
	waitForEvent(t, carol.ctl.Events, EventCallTerminated)
	waitForEvent(t, alice.ctl.Events, EventCallCancelled)

	if _, err := alice.ctl.GetCallInfo(info.CallID); err != ErrCallNotFound {
		t.Fatalf("got %v, want ErrCallNotFound", err)
	}
}

func TestAddAndRemoveMediaSource(t *testing.T) {
	broker := newFakeBroker()
	alice := newTestNode(t, broker)
	defer alice.close()

	if err := alice.ctl.AddMediaSource("screen-share", rtc.DefaultCodec); err != nil {
		t.Fatalf("add media source: %v", err)
	}
	if err := alice.ctl.RemoveMediaSource("screen-share"); err != nil {
		t.Fatalf("remove media source: %v", err)
	}
	if err := alice.ctl.RemoveMediaSource("screen-share"); err == nil {
		t.Fatalf("expected error removing an already-removed source")
	}
}

func TestGetCallInfoUnknownReturnsErrCallNotFound(t *testing.T) {
	broker := newFakeBroker()
	alice := newTestNode(t, broker)
	defer alice.close()

	if _, err := alice.ctl.GetCallInfo(uuid.New()); err != ErrCallNotFound {
		t.Fatalf("got %v, want ErrCallNotFound", err)
	}
}
