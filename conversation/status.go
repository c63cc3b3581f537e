package conversation

// ConnectionStatus is the outcome of the last connection test. It is never persisted.
type ConnectionStatus string

const (
	StatusUnchecked ConnectionStatus = "unchecked"
	StatusChecking  ConnectionStatus = "checking"
	StatusSuccess   ConnectionStatus = "success"
	StatusError     ConnectionStatus = "error"
)

func (s ConnectionStatus) String() string {
	return string(s)
}
