// Package errcode defines the closed error taxonomy shared by every tix
// component and the integer codes those errors become at the C boundary.
//
// Components return *Error values (or wrap them with %w); callers compare
// with errors.Is against the exported sentinels:
//
//	if errors.Is(err, errcode.ErrTicketNotFound) { ... }
//
// Only the boundary layer converts errors to integers, via Of.
package errcode

import (
	"errors"
	"fmt"
	"io/fs"
)

// Code is a result code returned across the native boundary.
// Zero means success; every failure is negative.
type Code int

// Environment errors.
const (
	OK              Code = 0
	OutOfMemory     Code = -1
	NotARepository  Code = -2
	CommandFailed   Code = -3
	FileSystemError Code = -4
	UnknownError    Code = -99
)

// Workspace errors.
const (
	WorkspaceCreationFailed Code = -10
	AccessDenied            Code = -11
)

// Config errors.
const (
	InvalidKey  Code = -20
	KeyNotFound Code = -21
)

// Remote errors.
const (
	RemoteAlreadyExists  Code = -30
	RemoteInvalidName    Code = -31
	RemoteNotARepository Code = -32
	RemoteFailed         Code = -33
)

// Project errors.
const (
	ProjectNotFound      Code = -40
	ProjectAlreadyExists Code = -41
	AlreadyOnProject     Code = -42
	SwitchFailed         Code = -43
)

// Ticket errors.
const (
	InvalidPriority Code = -50
	InvalidTitle    Code = -51
	InvalidTicketID Code = -52
	TicketNotFound  Code = -53
	InvalidStatus   Code = -54
)

// History errors.
const (
	NothingToUndo Code = -60
	NothingToRedo Code = -61
)

var names = map[Code]string{
	OK:                      "ok",
	OutOfMemory:             "out of memory",
	NotARepository:          "not a tix workspace",
	CommandFailed:           "command failed",
	FileSystemError:         "file system error",
	UnknownError:            "unknown error",
	WorkspaceCreationFailed: "workspace creation failed",
	AccessDenied:            "access denied",
	InvalidKey:              "invalid config key",
	KeyNotFound:             "config key not found",
	RemoteAlreadyExists:     "remote already exists",
	RemoteInvalidName:       "invalid remote name",
	RemoteNotARepository:    "remote is not a tix repository",
	RemoteFailed:            "remote operation failed",
	ProjectNotFound:         "project not found",
	ProjectAlreadyExists:    "project already exists",
	AlreadyOnProject:        "already on project",
	SwitchFailed:            "project switch failed",
	InvalidPriority:         "invalid priority",
	InvalidTitle:            "invalid title",
	InvalidTicketID:         "invalid ticket id",
	TicketNotFound:          "ticket not found",
	InvalidStatus:           "invalid status",
	NothingToUndo:           "nothing to undo",
	NothingToRedo:           "nothing to redo",
}

// String returns the short human-readable description of the code.
func (c Code) String() string {
	if s, ok := names[c]; ok {
		return s
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Known reports whether c belongs to the taxonomy.
func (c Code) Known() bool {
	_, ok := names[c]
	return ok
}

// Error carries a taxonomy code plus the operation that failed and,
// optionally, the underlying cause.
type Error struct {
	Code Code
	Op   string // e.g. "ticket.move"
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Code.String()
	}
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same code, so wrapped errors compare
// equal to the package sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New returns an *Error for op with a formatted message.
func New(code Code, op, format string, args ...interface{}) *Error {
	return &Error{Code: code, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap returns an *Error for op that wraps err. A nil err yields nil.
func Wrap(code Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Op: op, Err: err}
}

// Sentinels for errors.Is comparisons.
var (
	ErrOutOfMemory             = &Error{Code: OutOfMemory}
	ErrNotARepository          = &Error{Code: NotARepository}
	ErrCommandFailed           = &Error{Code: CommandFailed}
	ErrFileSystem              = &Error{Code: FileSystemError}
	ErrUnknown                 = &Error{Code: UnknownError}
	ErrWorkspaceCreationFailed = &Error{Code: WorkspaceCreationFailed}
	ErrAccessDenied            = &Error{Code: AccessDenied}
	ErrInvalidKey              = &Error{Code: InvalidKey}
	ErrKeyNotFound             = &Error{Code: KeyNotFound}
	ErrRemoteAlreadyExists     = &Error{Code: RemoteAlreadyExists}
	ErrRemoteInvalidName       = &Error{Code: RemoteInvalidName}
	ErrRemoteNotARepository    = &Error{Code: RemoteNotARepository}
	ErrRemoteFailed            = &Error{Code: RemoteFailed}
	ErrProjectNotFound         = &Error{Code: ProjectNotFound}
	ErrProjectAlreadyExists    = &Error{Code: ProjectAlreadyExists}
	ErrAlreadyOnProject        = &Error{Code: AlreadyOnProject}
	ErrSwitchFailed            = &Error{Code: SwitchFailed}
	ErrInvalidPriority         = &Error{Code: InvalidPriority}
	ErrInvalidTitle            = &Error{Code: InvalidTitle}
	ErrInvalidTicketID         = &Error{Code: InvalidTicketID}
	ErrTicketNotFound          = &Error{Code: TicketNotFound}
	ErrInvalidStatus           = &Error{Code: InvalidStatus}
	ErrNothingToUndo           = &Error{Code: NothingToUndo}
	ErrNothingToRedo           = &Error{Code: NothingToRedo}
)

// Of maps any error onto the taxonomy. nil is OK; untyped permission
// failures become AccessDenied, other path errors FileSystemError, and
// everything else UnknownError.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if errors.Is(err, fs.ErrPermission) {
		return AccessDenied
	}
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return FileSystemError
	}
	return UnknownError
}
