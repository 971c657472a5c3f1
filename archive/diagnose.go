// Corrupted-error diagnostics: attach a hexdump of the offending block
// so a Corrupted error carries enough context to debug without a
// separate round trip to the file (spec §4 "Hexdump diagnostic").
package archive

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/jakson-go/carbon"
	"github.com/jakson-go/carbon/kind"
)

// annotateCorrupted appends a hexdump of block to err's message when
// err wraps kind.ErrCorrupted, leaving every other error untouched.
func annotateCorrupted(block []byte, err error) error {
	if err == nil || !errors.Is(err, kind.ErrCorrupted) {
		return err
	}
	var buf bytes.Buffer
	if dumpErr := carbon.Hexdump(&buf, block); dumpErr != nil {
		return err
	}
	return fmt.Errorf("%w\n%s", err, buf.String())
}
