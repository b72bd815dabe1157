// Package status defines the errno-derived status taxonomy every fallible
// kernel-core operation returns (spec §7). Values and meanings are taken
// verbatim from yjkos's status.h so existing callers porting from the C
// original keep the same numeric contract.
package status

import "fmt"

// Err is the status code returned by every fallible core operation. The
// zero value is OK; a fallible operation either fully succeeds or produces
// no visible side effect.
type Err int

const (
	OK Err = 0

	// Errors derived from POSIX errno values.
	PERM        Err = 1  /// operation not permitted
	NOENT       Err = 2  /// no such object
	IO          Err = 5  /// I/O failure
	BADF        Err = 9  /// bad descriptor
	NOMEM       Err = 12 /// allocation or resource exhaustion
	FAULT       Err = 14 /// bad address
	NODEV       Err = 19 /// no such device
	NOTDIR      Err = 20 /// path element is not a directory
	ISDIR       Err = 21 /// operation on directory is forbidden
	INVAL       Err = 22 /// invalid argument or precondition
	NAMETOOLONG Err = 36 /// path component too long
	NOTSUP      Err = 95 /// unsupported operation

	// Kernel-core specific errors.
	SUBCMDDIED Err = 254 /// child command failed
	EOF        Err = 255 /// end of stream / timeout
)

var names = map[Err]string{
	OK:          "OK",
	PERM:        "operation not permitted",
	NOENT:       "no such object",
	IO:          "I/O failure",
	BADF:        "bad descriptor",
	NOMEM:       "allocation or resource exhaustion",
	FAULT:       "bad address",
	NODEV:       "no such device",
	NOTDIR:      "not a directory",
	ISDIR:       "is a directory",
	INVAL:       "invalid argument",
	NAMETOOLONG: "name too long",
	NOTSUP:      "not supported",
	SUBCMDDIED:  "child command failed",
	EOF:         "end of file",
}

// Error implements the error interface so Err can be handed to callers that
// expect one, without forcing every internal call site to allocate one.
func (e Err) Error() string {
	if s, ok := names[e]; ok {
		return s
	}
	return fmt.Sprintf("status %d", int(e))
}

// Ok reports whether e represents success.
func (e Err) Ok() bool { return e == OK }
