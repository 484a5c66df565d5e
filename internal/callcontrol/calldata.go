package callcontrol

import (
	"github.com/google/uuid"
	"github.com/havenline/callcore/internal/wire"
	"github.com/havenline/callcore/pkg/identity"
)

// CallInfo is the immutable metadata describing a call once an offer has
// been issued or received.
type CallInfo = wire.CallInfo

// ParticipantState mirrors a single participant's self-reported flags.
type ParticipantState struct {
	Muted     bool
	Deafened  bool
	Recording bool
}

// CallState is the mutable per-call state: one ParticipantState per
// participant who has declared a flag, plus the set of peers who have
// declared themselves joined (distinct from merely invited).
type CallState struct {
	Participants map[identity.PeerID]*ParticipantState
	Joined       map[identity.PeerID]struct{}
}

func newCallState() CallState {
	return CallState{
		Participants: make(map[identity.PeerID]*ParticipantState),
		Joined:       make(map[identity.PeerID]struct{}),
	}
}

func (s CallState) participant(peer identity.PeerID) *ParticipantState {
	p, ok := s.Participants[peer]
	if !ok {
		p = &ParticipantState{}
		s.Participants[peer] = p
	}
	return p
}

// resetSelf clears self's own participant flags back to their just-joined
// default. Called on the previous active call's entry whenever the active
// call is swapped, so muting/deafening/recording on one call never leaks
// into the next call self activates or re-enters.
func (s CallState) resetSelf(self identity.PeerID) {
	if p, ok := s.Participants[self]; ok {
		p.Muted = false
		p.Deafened = false
		p.Recording = false
	}
}

// clone returns a snapshot of s that shares no maps with the original, safe
// to hand to a caller outside the actor goroutine that keeps mutating s.
func (s CallState) clone() CallState {
	out := newCallState()
	for peer, p := range s.Participants {
		copied := *p
		out.Participants[peer] = &copied
	}
	for peer := range s.Joined {
		out.Joined[peer] = struct{}{}
	}
	return out
}

type callEntry struct {
	info       CallInfo
	state      CallState
	originator identity.PeerID // empty for locally-offered calls
}

// CallDataMap holds every call known locally, keyed by call ID, with the
// invariant that a call_id appears in the map iff an offer has been
// received or issued and not yet torn down, self is always a participant of
// any call present, and every joined/state participant is a member of
// CallInfo.Participants.
type CallDataMap struct {
	calls map[uuid.UUID]*callEntry
}

func newCallDataMap() *CallDataMap {
	return &CallDataMap{calls: make(map[uuid.UUID]*callEntry)}
}

func (m *CallDataMap) put(info CallInfo, originator identity.PeerID) *callEntry {
	entry := &callEntry{info: info, state: newCallState(), originator: originator}
	m.calls[info.CallID] = entry
	return entry
}

func (m *CallDataMap) get(callID uuid.UUID) (*callEntry, bool) {
	e, ok := m.calls[callID]
	return e, ok
}

func (m *CallDataMap) remove(callID uuid.UUID) {
	delete(m.calls, callID)
}

func (m *CallDataMap) pending() []CallInfo {
	out := make([]CallInfo, 0, len(m.calls))
	for _, e := range m.calls {
		out = append(out, e.info)
	}
	return out
}

// isRosterMember reports whether peer is named in call_id's participant
// list, the roster check every gossip-signal handler applies before acting.
func (e *callEntry) isRosterMember(peer identity.PeerID) bool {
	for _, p := range e.info.Participants {
		if p == peer {
			return true
		}
	}
	return false
}
