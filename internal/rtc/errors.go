package rtc

import "errors"

var (
	// ErrPeerNotFound is returned by operations addressed to a peer with no
	// live PeerConnection.
	ErrPeerNotFound = errors.New("rtc: peer not found")
	// ErrMediaSourceNotFound is returned by remove_media_source for an
	// unknown source id.
	ErrMediaSourceNotFound = errors.New("rtc: media source not found")
)
