package session

type Status string

const (
	StatusInactive        Status = "inactive"
	StatusConnecting      Status = "connecting"
	StatusActive          Status = "active"
	StatusFinished        Status = "finished"
	StatusError           Status = "error"
	StatusLoadingProgress Status = "loading_progress"
)

// live reports whether a vendor call may be open.
func (s Status) live() bool {
	return s == StatusConnecting || s == StatusActive
}
