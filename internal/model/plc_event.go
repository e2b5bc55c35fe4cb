package model

// PLCEventKind names what happened to a PLC request.
type PLCEventKind string

const (
	PLCEventCreated   PLCEventKind = "created"
	PLCEventCancelled PLCEventKind = "cancelled"
)

// PLCEvent is published after a PLC request was created or cancelled.
type PLCEvent struct {
	Kind        PLCEventKind `json:"kind"`
	RequestID   string       `json:"requestId"`
	RequestName string       `json:"requestName"`
	SignalName  string       `json:"signalName"`
	By          string       `json:"by"`
}
