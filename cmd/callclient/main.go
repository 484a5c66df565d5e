// Command callclient is a minimal multi-party voice-call peer: it joins the
// gossip mesh, prints its own address, optionally offers a call to a set of
// peers given on the command line, auto-answers incoming calls, and logs
// every Call Controller event until interrupted.
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/havenline/callcore/cmd/config"
	"github.com/havenline/callcore/internal/callcontrol"
	"github.com/havenline/callcore/internal/gossip"
	"github.com/havenline/callcore/internal/media"
	"github.com/havenline/callcore/internal/rtc"
	"github.com/havenline/callcore/pkg/identity"
)

func main() {
	configFilePath := flag.String("configFilePath", "config.yaml", "Set the file path to the config file.")
	offerPeers := flag.String("offer", "", "Comma-separated peer ids to call on startup.")
	flag.Parse()

	config.LoadConfig(*configFilePath)

	id, err := identity.New()
	if err != nil {
		slog.Error("error when generating identity", "err", err)
		panic(err)
	}

	logFilePointer := config.ConfigureLogger(string(id.GetOwnID()))
	if logFilePointer != nil {
		defer logFilePointer.Close()
	}
	slog.Info("own peer id", "peer_id", id.GetOwnID())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	transport, err := gossip.NewLibp2pTransport(ctx, id.GetOwnID(), viper.GetStringSlice("listenaddrs")...)
	if err != nil {
		slog.Error("error when starting libp2p transport", "err", err)
		panic(err)
	}
	defer transport.Close()

	// --------------------------------------------------------------------------------

	codec, ok := rtc.CodecMap[viper.GetString("codec")]
	if !ok {
		panic(fmt.Sprintf("unrecognized codec %q", viper.GetString("codec")))
	}

	sender := gossip.NewSender(transport, id)
	listener := gossip.NewListener(transport, sender)

	rtcCtl, err := rtc.NewController(viper.GetString("stunserver"))
	if err != nil {
		slog.Error("error when starting webrtc controller", "err", err)
		panic(err)
	}

	sinkDevice := media.NewDummySinkDevice(media.DeviceProperties{SampleRate: codec.ClockRate, NumChannels: codec.Channels})
	sourceDevice := media.NewDummySourceDevice(media.DeviceProperties{SampleRate: codec.ClockRate, NumChannels: codec.Channels})
	pipeline := media.NewPipeline(sinkDevice)

	ctl := callcontrol.NewController(sender, listener, rtcCtl, pipeline, sourceDevice)
	defer ctl.Close()

	go logEvents(ctl)

	// --------------------------------------------------------------------------------

	if *offerPeers != "" {
		info := buildOffer(id.GetOwnID(), *offerPeers)
		slog.Info("offering call", "call_id", info.CallID, "participants", info.Participants)
		if err := ctl.OfferCall(info); err != nil {
			slog.Error("error when offering call", "err", err)
		}
	}

	// --------------------------------------------------------------------------------

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
}

// buildOffer constructs a fresh call from a comma-separated list of peer
// ids, with self implicitly included, and a random group key for the
// call-wide AES channel.
func buildOffer(self identity.PeerID, peerList string) callcontrol.CallInfo {
	var groupKey [32]byte
	if _, err := rand.Read(groupKey[:]); err != nil {
		panic(err)
	}

	participants := []identity.PeerID{self}
	for _, raw := range strings.Split(peerList, ",") {
		peer := identity.PeerID(strings.TrimSpace(raw))
		if peer == "" || peer == self {
			continue
		}
		participants = append(participants, peer)
	}

	return callcontrol.CallInfo{
		CallID:       uuid.New(),
		Participants: participants,
		GroupKey:     groupKey,
	}
}

// logEvents auto-answers incoming calls and logs every Call Controller
// event, standing in for a real UI layer.
func logEvents(ctl *callcontrol.Controller) {
	for ev := range ctl.Events {
		switch ev.Kind {
		case callcontrol.EventIncomingCall:
			slog.Info("incoming call, auto-answering", "call_id", ev.CallID, "from", ev.Sender)
			if err := ctl.AnswerCall(ev.CallID); err != nil {
				slog.Error("error when answering call", "call_id", ev.CallID, "err", err)
			}
		case callcontrol.EventParticipantJoined:
			slog.Info("participant joined", "call_id", ev.CallID, "peer", ev.Sender)
		case callcontrol.EventParticipantLeft:
			slog.Info("participant left", "call_id", ev.CallID, "peer", ev.Sender)
		case callcontrol.EventCallCancelled:
			slog.Info("call cancelled", "call_id", ev.CallID)
		case callcontrol.EventCallTerminated:
			slog.Info("call terminated", "call_id", ev.CallID)
		case callcontrol.EventParticipantMuted:
			slog.Info("participant muted", "call_id", ev.CallID, "peer", ev.Sender)
		case callcontrol.EventParticipantUnmuted:
			slog.Info("participant unmuted", "call_id", ev.CallID, "peer", ev.Sender)
		case callcontrol.EventParticipantDeafened:
			slog.Info("participant deafened", "call_id", ev.CallID, "peer", ev.Sender)
		case callcontrol.EventParticipantUndeafened:
			slog.Info("participant undeafened", "call_id", ev.CallID, "peer", ev.Sender)
		case callcontrol.EventParticipantRecording:
			slog.Info("participant recording", "call_id", ev.CallID, "peer", ev.Sender)
		case callcontrol.EventParticipantNotRecording:
			slog.Info("participant stopped recording", "call_id", ev.CallID, "peer", ev.Sender)
		case callcontrol.EventLoudness:
			slog.Debug("loudness", "call_id", ev.CallID, "peer", ev.Sender, "loudness", ev.Loudness)
		}
	}
}
