package models

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("invalid generation parameters")
	ErrGeneration       = errors.New("generation failed")
	ErrIdentityNotFound = errors.New("author does not match any participant")
	ErrPosting          = errors.New("message post failed")
	ErrReaction         = errors.New("reaction failed")
	ErrMembership       = errors.New("bot cannot access channel")
	ErrUnrecoverable    = errors.New("generation run aborted")
)

// ValidationError names the parameter that failed validation
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// MembershipError is returned when the bot is not in the target channel and
// cannot join it on its own
type MembershipError struct {
	ChannelID string
	Private   bool
	Err       error
}

func (e *MembershipError) Error() string {
	if e.Private {
		return fmt.Sprintf("unable to add the bot to <#%s>: this is a private channel, please add the bot manually and try again", e.ChannelID)
	}
	if e.Err != nil {
		return fmt.Sprintf("unable to add the bot to <#%s>: %v", e.ChannelID, e.Err)
	}
	return fmt.Sprintf("unable to add the bot to <#%s>", e.ChannelID)
}

func (e *MembershipError) Is(target error) bool {
	return target == ErrMembership
}

func (e *MembershipError) Unwrap() error {
	return e.Err
}
