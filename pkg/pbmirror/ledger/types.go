package ledger

import (
	"bytes"
	"encoding/gob"
	"time"
)

// FormatVersion is incremented when the record encoding changes.
const FormatVersion = 1

// KeySeparator separates the version from the library path in keys.
const KeySeparator = '\x00'

// Record is the last successful extraction of one library.
type Record struct {
	Format      int
	Size        int64 // library size in bytes at extraction time
	Mtime       int64 // library modification time as UnixNano
	ExtractedAt int64 // UnixNano
	OutputDir   string
}

// Matches reports whether the record describes a file of the given size and
// modification time.
func (r *Record) Matches(size int64, mtime time.Time) bool {
	return r.Format == FormatVersion && r.Size == size && r.Mtime == mtime.UnixNano()
}

// Encode serializes the record to bytes using gob.
func (r *Record) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes bytes into the record using gob.
func (r *Record) Decode(data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(r)
}

// MakeKey creates a ledger key from a version and library path.
// Format: <version>\x00<path>
func MakeKey(version, path string) []byte {
	return []byte(version + string(KeySeparator) + path)
}

// ParseKey extracts the version and library path from a key.
func ParseKey(key []byte) (version, path string) {
	idx := bytes.IndexByte(key, KeySeparator)
	if idx == -1 {
		return string(key), ""
	}
	return string(key[:idx]), string(key[idx+1:])
}

// MakeKeyPrefix returns the prefix for all keys of a version.
// An empty version matches every key.
func MakeKeyPrefix(version string) []byte {
	if version == "" {
		return nil
	}
	return []byte(version + string(KeySeparator))
}
