// Package cmderr defines the typed errors that the command pipeline
// converts into RESP error frames, per spec §7.
package cmderr

import "fmt"

// TaggedError is an error carrying the RESP error tag it should be
// rendered with (ERR, WRONGTYPE, NOSCRIPT, ...).
type TaggedError struct {
	Tag string
	Msg string
}

func (e *TaggedError) Error() string { return e.Msg }

// New builds a generic ERR-tagged error, formatted like fmt.Errorf.
func New(format string, args ...any) error {
	return &TaggedError{Tag: "ERR", Msg: fmt.Sprintf(format, args...)}
}

// Tagged builds an error with an explicit tag.
func Tagged(tag, format string, args ...any) error {
	return &TaggedError{Tag: tag, Msg: fmt.Sprintf(format, args...)}
}

var (
	ErrWrongType     = &TaggedError{Tag: "WRONGTYPE", Msg: "Operation against a key holding the wrong kind of value"}
	ErrNoScript      = &TaggedError{Tag: "NOSCRIPT", Msg: "No matching script. Please use EVAL."}
	ErrNoAuth        = &TaggedError{Tag: "NOAUTH", Msg: "Authentication required."}
	ErrLoading       = &TaggedError{Tag: "LOADING", Msg: "Redis is loading the dataset in memory"}
	ErrMasterDown    = &TaggedError{Tag: "MASTERDOWN", Msg: "Link with MASTER is down and replica-serve-stale-data is set to 'no'."}
	ErrExecAbort     = &TaggedError{Tag: "EXECABORT", Msg: "Transaction discarded because of previous errors."}
	ErrNotInteger    = &TaggedError{Tag: "ERR", Msg: "value is not an integer or out of range"}
	ErrNotFloat      = &TaggedError{Tag: "ERR", Msg: "value is not a valid float"}
	ErrSyntax        = &TaggedError{Tag: "ERR", Msg: "syntax error"}
	ErrInvalidDB     = &TaggedError{Tag: "ERR", Msg: "DB index is out of range"}
	ErrOverflow      = &TaggedError{Tag: "ERR", Msg: "increment or decrement would overflow"}
)

// Tag returns the error's RESP tag, defaulting to ERR for plain errors.
func Tag(err error) string {
	var te *TaggedError
	if e, ok := err.(*TaggedError); ok {
		return e.Tag
	}
	_ = te
	return "ERR"
}

// ArityError formats the standard "wrong number of arguments" message.
func ArityError(cmd string) error {
	return New("wrong number of arguments for '%s' command", cmd)
}

// UnknownCommand formats the standard unknown-command message.
func UnknownCommand(cmd string, args []string) error {
	return New("unknown command '%s'", cmd)
}
