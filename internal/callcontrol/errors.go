package callcontrol

import "errors"

var (
	ErrCallNotFound      = errors.New("callcontrol: call not found")
	ErrCallNotInProgress = errors.New("callcontrol: no active call")
	ErrPeerNotFound      = errors.New("callcontrol: peer not found")
)
