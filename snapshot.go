package chainmap

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

// Snapshot file layout, all integers big-endian:
//
//	header : magic uint32, version uint32, count uint64
//	record : keyLen uint32, key bytes, valLen uint32, value bytes
//	trailer: xxhash64 of all record bytes
const (
	snapshotMagic   uint32 = 0x43484D53 // "CHMS"
	snapshotVersion uint32 = 1
	snapshotHeader         = 16
	snapshotTrailer        = 8
)

// EncodeFunc turns a stored value into bytes for a snapshot record.
type EncodeFunc func(value any) ([]byte, error)

// DecodeFunc rebuilds a value from a snapshot record's bytes.
type DecodeFunc func(data []byte) (any, error)

// Save writes every entry to a snapshot file at path. The snapshot goes to a
// temporary file first and is renamed into place, so a failure mid-save
// leaves any previous snapshot intact. All record bytes are checksummed with
// xxhash64; Load refuses a snapshot whose checksum does not match.
func (t *Table) Save(path string, encode EncodeFunc) error {
	if encode == nil {
		return ErrNilCallback
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTableClosed
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}

	err = t.writeSnapshot(f, encode)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename snapshot: %w", err)
	}
	t.logger.Debug("snapshot saved",
		zap.String("path", path), zap.Int("entries", t.size))
	return nil
}

// writeSnapshot emits the header, one record per entry in Scan order, and
// the checksum trailer. Callers must hold t.mu.
func (t *Table) writeSnapshot(w io.Writer, encode EncodeFunc) error {
	bw := bufio.NewWriter(w)

	header := make([]byte, snapshotHeader)
	binary.BigEndian.PutUint32(header[0:4], snapshotMagic)
	binary.BigEndian.PutUint32(header[4:8], snapshotVersion)
	binary.BigEndian.PutUint64(header[8:16], uint64(t.size))
	if _, err := bw.Write(header); err != nil {
		return fmt.Errorf("write snapshot header: %w", err)
	}

	sum := xxhash.New()
	body := io.MultiWriter(bw, sum)
	var n [4]byte
	for _, head := range t.buckets {
		for e := head; e != nil; e = e.next {
			data, err := encode(e.value)
			if err != nil {
				return fmt.Errorf("encode value for %q: %w", e.key, err)
			}
			binary.BigEndian.PutUint32(n[:], uint32(len(e.key)))
			if _, err := body.Write(n[:]); err != nil {
				return fmt.Errorf("write snapshot record: %w", err)
			}
			if _, err := io.WriteString(body, e.key); err != nil {
				return fmt.Errorf("write snapshot record: %w", err)
			}
			binary.BigEndian.PutUint32(n[:], uint32(len(data)))
			if _, err := body.Write(n[:]); err != nil {
				return fmt.Errorf("write snapshot record: %w", err)
			}
			if _, err := body.Write(data); err != nil {
				return fmt.Errorf("write snapshot record: %w", err)
			}
		}
	}

	var trailer [8]byte
	binary.BigEndian.PutUint64(trailer[:], sum.Sum64())
	if _, err := bw.Write(trailer[:]); err != nil {
		return fmt.Errorf("write snapshot trailer: %w", err)
	}
	return bw.Flush()
}

// Load reads a snapshot produced by Save and inserts every pair into the
// table. Keys stay unique: a key already present in the table, or appearing
// twice in the file, aborts with ErrDuplicateKey. Load is all-or-nothing —
// the file is validated, checksum included, and every pair lands under one
// lock acquisition, so neither a corrupt snapshot nor a duplicate key
// leaves the table partially loaded.
func (t *Table) Load(path string, decode DecodeFunc) error {
	if decode == nil {
		return ErrNilCallback
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat snapshot: %w", err)
	}

	pairs, err := readSnapshot(f, info.Size(), decode)
	if err != nil {
		return err
	}
	if err := t.putAll(pairs); err != nil {
		return err
	}
	t.log().Debug("snapshot loaded",
		zap.String("path", path), zap.Int("entries", len(pairs)))
	return nil
}

// putAll inserts pairs under a single lock acquisition. Every key is checked
// against the table and against the rest of the batch before the first
// insert, so a failure leaves the table untouched.
func (t *Table) putAll(pairs []snapshotPair) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTableClosed
	}
	seen := make(map[string]struct{}, len(pairs))
	idxs := make([]int, len(pairs))
	for i, p := range pairs {
		if p.value == nil {
			return ErrNilValue
		}
		idx, err := bucketIndex(p.key, len(t.buckets))
		if err != nil {
			return err
		}
		if t.lookup(idx, p.key) != nil {
			return fmt.Errorf("%w: %q", ErrDuplicateKey, p.key)
		}
		if _, dup := seen[p.key]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateKey, p.key)
		}
		seen[p.key] = struct{}{}
		idxs[i] = idx
	}
	for i, p := range pairs {
		t.buckets[idxs[i]] = &entry{key: p.key, value: p.value, next: t.buckets[idxs[i]]}
		t.size++
	}
	return nil
}

type snapshotPair struct {
	key   string
	value any
}

// readSnapshot parses and verifies a full snapshot stream. size is the
// total stream length in bytes; the header's record count and every record's
// length prefixes are checked against it before any allocation they govern,
// so a corrupt or crafted file fails with ErrBadSnapshot instead of an
// oversized make.
func readSnapshot(r io.Reader, size int64, decode DecodeFunc) ([]snapshotPair, error) {
	br := bufio.NewReader(r)

	header := make([]byte, snapshotHeader)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, fmt.Errorf("%w: short header: %v", ErrBadSnapshot, err)
	}
	if m := binary.BigEndian.Uint32(header[0:4]); m != snapshotMagic {
		return nil, fmt.Errorf("%w: bad magic %#x", ErrBadSnapshot, m)
	}
	if v := binary.BigEndian.Uint32(header[4:8]); v != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadSnapshot, v)
	}
	count := binary.BigEndian.Uint64(header[8:16])

	// remaining is the byte budget for record data. Every record carries at
	// least its two length prefixes, which bounds a plausible count.
	remaining := size - snapshotHeader - snapshotTrailer
	if remaining < 0 || count > uint64(remaining)/8 {
		return nil, fmt.Errorf("%w: record count %d exceeds file size %d", ErrBadSnapshot, count, size)
	}

	sum := xxhash.New()
	body := io.TeeReader(br, sum)
	var n [4]byte
	pairs := make([]snapshotPair, 0, count)
	for i := uint64(0); i < count; i++ {
		if _, err := io.ReadFull(body, n[:]); err != nil {
			return nil, fmt.Errorf("%w: truncated record %d: %v", ErrBadSnapshot, i, err)
		}
		keyLen := binary.BigEndian.Uint32(n[:])
		remaining -= 4
		if int64(keyLen) > remaining {
			return nil, fmt.Errorf("%w: key length %d in record %d exceeds file size", ErrBadSnapshot, keyLen, i)
		}
		key := make([]byte, keyLen)
		if _, err := io.ReadFull(body, key); err != nil {
			return nil, fmt.Errorf("%w: truncated key in record %d: %v", ErrBadSnapshot, i, err)
		}
		remaining -= int64(keyLen)
		if _, err := io.ReadFull(body, n[:]); err != nil {
			return nil, fmt.Errorf("%w: truncated record %d: %v", ErrBadSnapshot, i, err)
		}
		valLen := binary.BigEndian.Uint32(n[:])
		remaining -= 4
		if int64(valLen) > remaining {
			return nil, fmt.Errorf("%w: value length %d in record %d exceeds file size", ErrBadSnapshot, valLen, i)
		}
		data := make([]byte, valLen)
		if _, err := io.ReadFull(body, data); err != nil {
			return nil, fmt.Errorf("%w: truncated value in record %d: %v", ErrBadSnapshot, i, err)
		}
		remaining -= int64(valLen)
		value, err := decode(data)
		if err != nil {
			return nil, fmt.Errorf("decode value for %q: %w", key, err)
		}
		pairs = append(pairs, snapshotPair{key: string(key), value: value})
	}

	var trailer [8]byte
	if _, err := io.ReadFull(br, trailer[:]); err != nil {
		return nil, fmt.Errorf("%w: missing trailer: %v", ErrBadSnapshot, err)
	}
	if got := binary.BigEndian.Uint64(trailer[:]); got != sum.Sum64() {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrBadSnapshot)
	}
	return pairs, nil
}
