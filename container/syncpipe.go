package container

import (
	"encoding/binary"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// pipePair is one anonymous pipe as its read and write ends; the config,
// "ready" and "report" channels are each a separate pipePair. Ownership is
// scoped: after the post-clone/post-exec hand-off, each side closes exactly
// the end it doesn't use.
type pipePair struct {
	read, write *os.File
}

func newPipePair() (pipePair, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return pipePair{}, err
	}
	return pipePair{read: r, write: w}, nil
}

// blockUntilReady reads from the ready pipe until EOF, which happens only
// once the parent closes its write end (C6 step 6).
func blockUntilReady(ready *os.File) error {
	buf := make([]byte, 1)
	for {
		n, err := ready.Read(buf)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
}

// writeSuccess writes the one-byte success status (C6 step 7).
func writeSuccess(report *os.File) error {
	_, err := report.Write([]byte{0})
	return err
}

// writeFailure writes the status byte, the native-endian length prefix,
// and the message, per spec.md §4.8's wire format.
func writeFailure(report *os.File, msg string) error {
	if _, err := report.Write([]byte{1}); err != nil {
		return err
	}
	lenBuf := make([]byte, 8)
	binary.NativeEndian.PutUint64(lenBuf, uint64(len(msg)))
	if _, err := report.Write(lenBuf); err != nil {
		return err
	}
	_, err := report.Write([]byte(msg))
	return err
}

// readReport reads the wire format spec.md §4.1 step 7 describes and
// returns either nil (success) or an *EntryError.
func readReport(report *os.File) error {
	status := make([]byte, 1)
	if _, err := io.ReadFull(report, status); err != nil {
		return errors.Wrap(err, "read report status byte")
	}
	if status[0] == 0 {
		return nil
	}

	lenBuf := make([]byte, 8)
	if _, err := io.ReadFull(report, lenBuf); err != nil {
		return errors.Wrap(err, "read report message length")
	}
	n := binary.NativeEndian.Uint64(lenBuf)

	msgBuf := make([]byte, n)
	if _, err := io.ReadFull(report, msgBuf); err != nil {
		return errors.Wrap(err, "read report message")
	}

	// Lossy-decode per spec.md §4.8: an invalid byte sequence must not
	// make the parent fail to reconstruct the error at all.
	return &EntryError{Code: status[0], Message: strings.ToValidUTF8(string(msgBuf), "�")}
}
