package streams

// Status reports whether a streams component is consuming.
type Status string

const (
	StatusUnknown Status = "UNKNOWN"
	StatusRunning Status = "RUNNING"
	StatusStopped Status = "STOPPED"
)

func (s Status) String() string {
	return string(s)
}
