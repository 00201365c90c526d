package session

import "github.com/rail44/userdash/internal/user"

// State is the display state of the dashboard. It is exactly one of Loading,
// Failed or Ready.
type State interface {
	isState()
}

// Loading means a fetch cycle is in progress
type Loading struct{}

// Failed means the latest fetch cycle ended in an error
type Failed struct {
	Message string
}

// Ready holds the full, unfiltered list from the latest successful cycle
type Ready struct {
	Users []user.User
}

func (Loading) isState() {}
func (Failed) isState()  {}
func (Ready) isState()   {}

// Name returns a short lowercase name for logs and API responses
func Name(s State) string {
	switch s.(type) {
	case Loading:
		return "loading"
	case Failed:
		return "error"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}
