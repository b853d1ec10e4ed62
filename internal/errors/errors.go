package appErrors

import (
	"errors"
	"fmt"
)

var (
	// ErrNoAccountAvailable means no sending account has capacity left today.
	ErrNoAccountAvailable = errors.New("no sending account available")
	// ErrAccountUnavailable means the account bound to a campaign is inactive or suspended.
	ErrAccountUnavailable = errors.New("sending account unavailable")
	ErrCampaignNotActive  = errors.New("campaign is not active")
	ErrAccountInUse       = errors.New("sending account is bound to an active campaign")
	ErrInvalidInput       = errors.New("invalid input")
)

// ErrCampaignNotFound is returned when a campaign id does not exist
type ErrCampaignNotFound struct {
	CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

func NewCampaignNotFound(id int) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

type ErrAccountNotFound struct {
	AccountID int
}

func (e *ErrAccountNotFound) Error() string {
	return fmt.Sprintf("sending account with ID %d not found", e.AccountID)
}

func NewAccountNotFound(id int) error {
	return &ErrAccountNotFound{AccountID: id}
}

type ErrProspectNotFound struct {
	ProspectID int
}

func (e *ErrProspectNotFound) Error() string {
	return fmt.Sprintf("prospect with ID %d not found", e.ProspectID)
}

func NewProspectNotFound(id int) error {
	return &ErrProspectNotFound{ProspectID: id}
}

// IsNotFound reports whether err wraps any of the not-found errors above.
func IsNotFound(err error) bool {
	var c *ErrCampaignNotFound
	var a *ErrAccountNotFound
	var p *ErrProspectNotFound
	return errors.As(err, &c) || errors.As(err, &a) || errors.As(err, &p)
}

// TransportError wraps a failed delivery call. Every recipient of the group
// is treated as not delivered.
type TransportError struct {
	Recipients int
	Err        error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failed for %d recipients: %v", e.Recipients, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// PersistenceError is returned when delivered messages could not be recorded.
// Unrecorded lists the usernames that were delivered but whose bookkeeping was lost.
type PersistenceError struct {
	Unrecorded []string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to record %d delivered messages: %v", len(e.Unrecorded), e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
