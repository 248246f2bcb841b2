// Package persistence serializes the full key space to a single snapshot
// file and reconstructs it at startup. The format is private: an 8-byte
// magic+version header followed by one length-prefixed record per key.
package persistence

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/lunamoth/driftwood/internal/store"
	"go.uber.org/zap"
)

// fileMagic identifies a snapshot file; the trailing digit is the format
// version. A future schema change bumps the digit so old binaries detect
// the mismatch instead of misreading records.
const fileMagic = "DRIFTWD1"

const (
	// maxRecordPart caps any single length prefix (key, element, field,
	// value) so a corrupt file cannot drive huge allocations.
	maxRecordPart = 512 * 1024 * 1024
	// maxAggregateLen caps element/field counts per record.
	maxAggregateLen = 1024 * 1024 * 1024
)

var (
	// ErrBadHeader means the file is not a snapshot or is a version this
	// binary does not understand. Fatal at startup.
	ErrBadHeader = errors.New("snapshot: bad header")
	// ErrCorrupt means the record stream is malformed or truncated.
	ErrCorrupt = errors.New("snapshot: corrupt record stream")
)

// Snapshot reads and writes the snapshot file at a fixed path.
type Snapshot struct {
	path   string
	logger *zap.Logger
}

func New(path string, logger *zap.Logger) *Snapshot {
	return &Snapshot{
		path:   path,
		logger: logger,
	}
}

// Save takes a point-in-time copy of the store (brief, under the store
// lock) and writes it to a temporary file, then atomically renames it over
// the target path. A crash mid-write leaves the previous snapshot intact.
func (s *Snapshot) Save(db *store.Store) error {
	start := time.Now()
	records := db.Snapshot()

	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer func() {
		f.Close()      //nolint:errcheck
		os.Remove(tmp) //nolint:errcheck
	}()

	w := bufio.NewWriterSize(f, 1024*1024)

	if _, err := w.WriteString(fileMagic); err != nil {
		return err
	}
	for i := range records {
		if err := writeRecord(w, &records[i]); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return err
	}

	s.logger.Info("snapshot saved",
		zap.String("file", s.path),
		zap.Int("keys", len(records)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// Load reconstructs the store from the snapshot file. A missing file means
// a fresh start and is not an error. Any decode failure is returned before
// the store is touched, so a bad file never partially populates it.
func (s *Snapshot) Load(db *store.Store) error {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("no snapshot file, starting empty", zap.String("file", s.path))
			return nil
		}
		return err
	}
	defer f.Close() //nolint:errcheck

	start := time.Now()
	r := bufio.NewReader(f)

	header := make([]byte, len(fileMagic))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("%w: %v", ErrBadHeader, err)
	}
	if !bytes.Equal(header, []byte(fileMagic)) {
		return fmt.Errorf("%w: got %q, want %q", ErrBadHeader, header, fileMagic)
	}

	var records []store.Record
	for {
		rec, err := readRecord(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		records = append(records, rec)
	}

	db.Restore(records)

	s.logger.Info("snapshot loaded",
		zap.String("file", s.path),
		zap.Int("keys", len(records)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// Record layout, all integers little-endian:
//
//	u32 key length, key bytes
//	u8  type tag (store.Kind)
//	payload:
//	  string: u32 length, bytes
//	  list:   u32 count, then per element u32 length + bytes
//	  hash:   u32 count, then per field u32 length + field, u32 length + value
//	u8  expiry flag; if 1, i64 absolute expiry in unix nanoseconds
func writeRecord(w *bufio.Writer, rec *store.Record) error {
	if err := writeBlob(w, []byte(rec.Key)); err != nil {
		return err
	}
	if err := w.WriteByte(byte(rec.Kind)); err != nil {
		return err
	}

	switch rec.Kind {
	case store.KindString:
		if err := writeBlob(w, rec.Str); err != nil {
			return err
		}
	case store.KindList:
		if err := writeUint32(w, uint32(len(rec.List))); err != nil {
			return err
		}
		for _, el := range rec.List {
			if err := writeBlob(w, el); err != nil {
				return err
			}
		}
	case store.KindHash:
		if err := writeUint32(w, uint32(len(rec.Hash))); err != nil {
			return err
		}
		for field, val := range rec.Hash {
			if err := writeBlob(w, []byte(field)); err != nil {
				return err
			}
			if err := writeBlob(w, val); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("snapshot: unknown kind %d for key %q", rec.Kind, rec.Key)
	}

	if rec.ExpireAt == 0 {
		return w.WriteByte(0)
	}
	if err := w.WriteByte(1); err != nil {
		return err
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(rec.ExpireAt))
	_, err := w.Write(buf[:])
	return err
}

func readRecord(r *bufio.Reader) (store.Record, error) {
	key, err := readBlob(r)
	if err != nil {
		// a clean EOF on the key length is the end of the stream
		if err == io.EOF {
			return store.Record{}, io.EOF
		}
		return store.Record{}, corrupt(err)
	}

	rec := store.Record{Key: string(key)}

	tag, err := r.ReadByte()
	if err != nil {
		return store.Record{}, corrupt(err)
	}
	rec.Kind = store.Kind(tag)

	switch rec.Kind {
	case store.KindString:
		if rec.Str, err = readBlob(r); err != nil {
			return store.Record{}, corrupt(err)
		}
	case store.KindList:
		n, err := readUint32(r)
		if err != nil {
			return store.Record{}, corrupt(err)
		}
		if n > maxAggregateLen {
			return store.Record{}, fmt.Errorf("%w: list count %d", ErrCorrupt, n)
		}
		rec.List = make([][]byte, n)
		for i := range rec.List {
			if rec.List[i], err = readBlob(r); err != nil {
				return store.Record{}, corrupt(err)
			}
		}
	case store.KindHash:
		n, err := readUint32(r)
		if err != nil {
			return store.Record{}, corrupt(err)
		}
		if n > maxAggregateLen {
			return store.Record{}, fmt.Errorf("%w: hash count %d", ErrCorrupt, n)
		}
		rec.Hash = make(map[string][]byte, n)
		for i := uint32(0); i < n; i++ {
			field, err := readBlob(r)
			if err != nil {
				return store.Record{}, corrupt(err)
			}
			val, err := readBlob(r)
			if err != nil {
				return store.Record{}, corrupt(err)
			}
			rec.Hash[string(field)] = val
		}
	default:
		return store.Record{}, fmt.Errorf("%w: unknown type tag %d", ErrCorrupt, tag)
	}

	flag, err := r.ReadByte()
	if err != nil {
		return store.Record{}, corrupt(err)
	}
	switch flag {
	case 0:
	case 1:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return store.Record{}, corrupt(err)
		}
		rec.ExpireAt = int64(binary.LittleEndian.Uint64(buf[:]))
	default:
		return store.Record{}, fmt.Errorf("%w: bad expiry flag %d", ErrCorrupt, flag)
	}

	return rec, nil
}

func writeUint32(w *bufio.Writer, n uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], n)
	_, err := w.Write(buf[:])
	return err
}

func readUint32(r *bufio.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func writeBlob(w *bufio.Writer, b []byte) error {
	if err := writeUint32(w, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBlob(r *bufio.Reader) ([]byte, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	if n > maxRecordPart {
		return nil, fmt.Errorf("%w: blob length %d", ErrCorrupt, n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, corrupt(err)
	}
	return b, nil
}

// corrupt turns a truncation error into ErrCorrupt; EOF mid-record is not
// a clean end of stream.
func corrupt(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: unexpected end of file", ErrCorrupt)
	}
	return err
}
