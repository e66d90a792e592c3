// Package serialize writes and reads every on-disk artifact of the
// pipeline: little-endian, tightly packed; `.restrictions`, `.edges` and
// the `.compressed` handoff file begin with a FingerPrint that their
// readers check. All writers go through a temp-path-then-rename
// step so a failed run never leaves a partial file where a downstream
// stage would pick it up.
package serialize

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"github.com/wirahadi/graphprep/pkg/datastructure"
	"github.com/wirahadi/graphprep/pkg/errs"
)

// writeAtomic writes via fn to a ".tmp" sibling of path, then renames
// over path only once fn and the underlying file both close cleanly.
func writeAtomic(path string, fn func(w *bufio.Writer) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errs.Configuration(err, "creating %q", tmp)
	}

	w := bufio.NewWriter(f)
	if err := fn(w); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return errs.DataIntegrity(err, "flushing %q", tmp)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return errs.DataIntegrity(err, "syncing %q", tmp)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errs.DataIntegrity(err, "closing %q", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errs.DataIntegrity(err, "renaming %q to %q", tmp, path)
	}
	return nil
}

func writeFingerPrint(w io.Writer) error {
	fp := datastructure.CurrentFingerPrint
	_, err := w.Write(fp[:])
	return err
}

func readFingerPrint(r io.Reader) error {
	var fp datastructure.FingerPrint
	if _, err := io.ReadFull(r, fp[:]); err != nil {
		return errs.DataIntegrity(err, "reading fingerprint")
	}
	if !fp.Valid() {
		return errs.DataIntegrity(nil, "fingerprint mismatch: got %v", fp)
	}
	return nil
}

func writeU32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func writeU64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readU64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Configuration(err, "creating output directory %q", dir)
	}
	return nil
}
