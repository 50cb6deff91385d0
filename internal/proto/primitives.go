package proto

import (
	"bufio"
	"encoding/binary"
	"io"
)

func writeI32(w io.Writer, v int32) error { return binary.Write(w, binary.BigEndian, v) }
func writeI64(w io.Writer, v int64) error { return binary.Write(w, binary.BigEndian, v) }

func writeBool(w io.Writer, v bool) error {
	b := byte(0)
	if v {
		b = 1
	}
	_, err := w.Write([]byte{b})
	return err
}

func writeU8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func readI32(r *bufio.Reader, tag Tag) (int32, error) {
	var v int32
	if err := binary.Read(r, binary.BigEndian, &v); err != nil {
		return 0, eofOrIO(tag, err)
	}
	return v, nil
}

func readI64(r *bufio.Reader, tag Tag) (int64, error) {
	var v int64
	if err := binary.Read(r, binary.BigEndian, &v); err != nil {
		return 0, eofOrIO(tag, err)
	}
	return v, nil
}

func readBool(r *bufio.Reader, tag Tag) (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, eofOrIO(tag, err)
	}
	if b != 0 && b != 1 {
		return false, malformedErr(tag, io.ErrNoProgress)
	}
	return b == 1, nil
}

func readU8(r *bufio.Reader, tag Tag) (uint8, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, eofOrIO(tag, err)
	}
	return b, nil
}

// writeStringList encodes a list<str> as a 4-byte count followed by that
// many str values.
func writeStringList(w io.Writer, items []string) error {
	if err := writeI32(w, int32(len(items))); err != nil {
		return err
	}
	for _, s := range items {
		if err := writeNonNullString(w, s); err != nil {
			return err
		}
	}
	return nil
}

func readStringList(r *bufio.Reader, tag Tag) ([]string, error) {
	n, err := readI32(r, tag)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, malformedErr(tag, io.ErrNoProgress)
	}
	out := make([]string, 0, n)
	for i := int32(0); i < n; i++ {
		s, err := readNonNullString(r, tag)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// writeStringMap encodes a map<str,str> as a 4-byte count followed by that
// many (key, value) pairs, in the iteration order given by keys.
func writeStringMap(w io.Writer, m map[string]string, keys []string) error {
	if err := writeI32(w, int32(len(keys))); err != nil {
		return err
	}
	for _, k := range keys {
		if err := writeNonNullString(w, k); err != nil {
			return err
		}
		if err := writeNonNullString(w, m[k]); err != nil {
			return err
		}
	}
	return nil
}

func readStringMap(r *bufio.Reader, tag Tag) (map[string]string, []string, error) {
	n, err := readI32(r, tag)
	if err != nil {
		return nil, nil, err
	}
	if n < 0 {
		return nil, nil, malformedErr(tag, io.ErrNoProgress)
	}
	m := make(map[string]string, n)
	keys := make([]string, 0, n)
	for i := int32(0); i < n; i++ {
		k, err := readNonNullString(r, tag)
		if err != nil {
			return nil, nil, err
		}
		v, err := readNonNullString(r, tag)
		if err != nil {
			return nil, nil, err
		}
		if _, exists := m[k]; !exists {
			keys = append(keys, k)
		}
		m[k] = v
	}
	return m, keys, nil
}
