package pack

import "github.com/jakson-go/carbon/cursor"

// None is the identity packer: no extra table, raw bytes on the wire.
// Every other variant's round-trip is judged against this baseline.
type None struct{}

func (*None) Flag() byte { return FlagNone }

func (*None) WriteExtra(w *cursor.Cursor, strings [][]byte) error { return nil }

func (*None) ReadExtra(r *cursor.Cursor, nbytes int) error {
	if nbytes == 0 {
		return nil
	}
	_, err := r.Read(nbytes) // extra_size is still honored even if empty
	return err
}

func (*None) EncodeString(w *cursor.Cursor, s []byte) error {
	return w.Write(s)
}

func (*None) DecodeString(r *cursor.Cursor, strlen int) ([]byte, error) {
	data, err := r.Read(strlen)
	if err != nil {
		return nil, err
	}
	out := make([]byte, strlen)
	copy(out, data)
	return out, nil
}
