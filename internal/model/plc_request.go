package model

import "time"

// PLCStatus is the lifecycle state of a PLC modification request.
type PLCStatus string

const (
	PLCStatusActive    PLCStatus = "active"
	PLCStatusCancelled PLCStatus = "cancelled"
	PLCStatusUnknown   PLCStatus = "unknown"
)

// PLCRequest is a filed PLC change request. Date and Time are written in the
// "YYYY-MM-DD" and "HH:MM" forms; records read back carry whatever the stored
// document holds, unnormalised.
type PLCRequest struct {
	ID          string     `json:"id"`
	RequestName string     `json:"requestName"`
	SignalName  string     `json:"signalName"`
	Details     string     `json:"details"`
	Date        string     `json:"date"`
	Time        string     `json:"time"`
	Status      PLCStatus  `json:"status"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
	CancelledBy string     `json:"cancelledBy,omitempty"`
	UpdatedBy   string     `json:"updatedBy,omitempty"`
	UID         string     `json:"uid"`
	UserName    string     `json:"userName"`
}
