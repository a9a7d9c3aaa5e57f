package rowfsm

import (
	"errors"
	"fmt"
)

// ErrorCode represents specific error conditions in the state machine
type ErrorCode int

const (
	// No error occurred
	ErrCodeNone ErrorCode = iota
	// Machine configuration is invalid
	ErrCodeInvalidConfiguration
	// Machine is not in started state
	ErrCodeMachineNotStarted
	// Machine was already started
	ErrCodeAlreadyStarted
	// The initial entry hook failed
	ErrCodeStartFailed
	// Machine reached a terminal state
	ErrCodeMachineTerminated
	// Machine was stopped
	ErrCodeMachineStopped
	// Machine hit a configuration error while running and refuses further work
	ErrCodeMachineFaulted
	// A call was made while another call on the same machine was in progress
	ErrCodeReentrant
	// Event is invalid for the machine
	ErrCodeInvalidEvent
	// A hook failed while firing a transition
	ErrCodeHookFailed
)

var (
	// ErrNilTable is returned when a machine is created without a table
	ErrNilTable = errors.New("transition table cannot be nil")
	// ErrNilData is returned when a machine is created without context data
	ErrNilData = errors.New("context data cannot be nil")
)

// ConfigurationError represents a malformed table or a pathological chain
type ConfigurationError struct {
	Component string
	Issue     string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Issue)
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(component, issue string) *ConfigurationError {
	return &ConfigurationError{
		Component: component,
		Issue:     issue,
	}
}

// MachineError represents a usage error: the call is rejected and the
// machine is left unchanged
type MachineError struct {
	Code      ErrorCode
	Operation string
	Message   string
	Cause     error
}

func (e *MachineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("machine error during %s: %s: %v", e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("machine error during %s: %s", e.Operation, e.Message)
}

func (e *MachineError) Unwrap() error {
	return e.Cause
}

// NewMachineError creates a new machine error
func NewMachineError(code ErrorCode, operation string, message string) *MachineError {
	return &MachineError{
		Code:      code,
		Operation: operation,
		Message:   message,
	}
}

// NewMachineNotStartedError creates a new machine not started error
func NewMachineNotStartedError(operation string) *MachineError {
	return NewMachineError(ErrCodeMachineNotStarted, operation, "state machine is not started")
}

// NewReentrantError creates the error returned to a nested or concurrent call
func NewReentrantError(operation string) *MachineError {
	return NewMachineError(ErrCodeReentrant, operation, "machine is already processing a call")
}

// Step names the phase of a firing in which a hook failed
type Step int

const (
	// StepGuard is the guard evaluation of a candidate row
	StepGuard Step = iota
	// StepExit is the source state's exit hook
	StepExit
	// StepAction is the row's action
	StepAction
	// StepEntry is the target state's entry hook
	StepEntry
)

func (s Step) String() string {
	switch s {
	case StepGuard:
		return "guard"
	case StepExit:
		return "exit"
	case StepAction:
		return "action"
	case StepEntry:
		return "entry"
	default:
		return "unknown"
	}
}

// HookError describes a hook failure and the row it happened on
type HookError struct {
	Step    Step
	Hook    string
	From    StateID
	To      StateID
	Trigger EventTag
	Cause   error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s hook %s failed [%s->%s on %s]: %v", e.Step, e.Hook, e.From, e.To, e.Trigger, e.Cause)
}

func (e *HookError) Unwrap() error {
	return e.Cause
}

// IsConfigurationError checks if an error is a ConfigurationError
func IsConfigurationError(err error) bool {
	var e *ConfigurationError
	return errors.As(err, &e)
}

// IsMachineError checks if an error is a MachineError
func IsMachineError(err error) bool {
	var e *MachineError
	return errors.As(err, &e)
}

// IsHookError checks if an error is a HookError
func IsHookError(err error) bool {
	var e *HookError
	return errors.As(err, &e)
}

// GetErrorCode returns the error code for known error types
func GetErrorCode(err error) ErrorCode {
	var (
		me *MachineError
		ce *ConfigurationError
		he *HookError
	)
	switch {
	case errors.As(err, &me):
		return me.Code
	case errors.As(err, &ce):
		return ErrCodeInvalidConfiguration
	case errors.As(err, &he):
		return ErrCodeHookFailed
	default:
		return ErrCodeNone
	}
}
