package ebr

import "fmt"

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error wraps a return code (of type RetCode) and a message. It is returned by
// TryRegister and Config.Validate and used as the panic value for contract
// violations the domain can detect.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("EBRError (code %s): %s", e.Code, e.Msg)
}

// Is reports whether target is an *Error with the same code, so callers can
// use errors.Is(err, ebr.NewError(ebr.RetCRegistryExhausted, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess           RetCode = iota // 0: no error
	RetCRegistryExhausted                // 1: every slot of the registry is taken
	RetCForeignGuard                     // 2: guard was issued by another handle
	RetCReleasedGuard                    // 3: guard was already released
	RetCDoubleRetire                     // 4: object retired twice (debug mode)
	RetCInvalidConfig                    // 5: configuration rejected by Validate
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCRegistryExhausted:
		return "RegistryExhausted"
	case RetCForeignGuard:
		return "ForeignGuard"
	case RetCReleasedGuard:
		return "ReleasedGuard"
	case RetCDoubleRetire:
		return "DoubleRetire"
	case RetCInvalidConfig:
		return "InvalidConfig"
	default:
		return "Unknown"
	}
}
