// Package hlsstorage persists generated fMP4 init and media segments to disk
// per monitor, writing a CRC16 sidecar next to each media segment as an
// integrity check independent of the filesystem's own guarantees.
package hlsstorage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sigurn/crc16"

	"github.com/zmstream/streamcore/internal/core"
)

var crcTable = crc16.MakeTable(crc16.CRC16_XMODEM)

// Storage lays out segments on disk as:
//
//	{root}/{monitorID}/init.mp4
//	{root}/{monitorID}/segment_{seq:05d}.m4s
//	{root}/{monitorID}/segment_{seq:05d}.m4s.crc16
type Storage struct {
	root string
}

// New constructs a Storage rooted at the given directory.
func New(root string) *Storage {
	return &Storage{root: root}
}

func (s *Storage) monitorDir(id core.MonitorID) string {
	return filepath.Join(s.root, fmt.Sprintf("%d", id))
}

// WriteInit writes a monitor's init segment, creating its directory if needed.
func (s *Storage) WriteInit(id core.MonitorID, data []byte) error {
	dir := s.monitorDir(id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &core.ErrStorage{Path: dir, Err: err}
	}
	path := filepath.Join(dir, "init.mp4")
	if err := writeAtomic(path, data); err != nil {
		return &core.ErrStorage{Path: path, Err: err}
	}
	return nil
}

// ReadInit reads a monitor's previously written init segment.
func (s *Storage) ReadInit(id core.MonitorID) ([]byte, error) {
	path := filepath.Join(s.monitorDir(id), "init.mp4")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &core.ErrStorage{Path: path, Err: err}
	}
	return data, nil
}

// WriteSegment writes a media segment and its CRC16 sidecar.
func (s *Storage) WriteSegment(id core.MonitorID, sequence uint64, data []byte) error {
	dir := s.monitorDir(id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &core.ErrStorage{Path: dir, Err: err}
	}
	path := s.segmentPath(id, sequence)
	if err := writeAtomic(path, data); err != nil {
		return &core.ErrStorage{Path: path, Err: err}
	}

	sum := crc16.Checksum(data, crcTable)
	sidecar := fmt.Sprintf("%04x\n", sum)
	if err := writeAtomic(path+".crc16", []byte(sidecar)); err != nil {
		return &core.ErrStorage{Path: path + ".crc16", Err: err}
	}
	return nil
}

// ReadSegment reads a media segment and verifies it against its CRC16 sidecar.
func (s *Storage) ReadSegment(id core.MonitorID, sequence uint64) ([]byte, error) {
	path := s.segmentPath(id, sequence)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &core.ErrStorage{Path: path, Err: err}
	}

	sidecar, err := os.ReadFile(path + ".crc16")
	if err == nil {
		var want uint16
		if _, scanErr := fmt.Sscanf(string(sidecar), "%04x", &want); scanErr == nil {
			got := crc16.Checksum(data, crcTable)
			if got != want {
				return nil, &core.ErrStorage{Path: path, Err: fmt.Errorf("crc16 mismatch: stored %04x computed %04x", want, got)}
			}
		}
	}

	return data, nil
}

// RemoveSegment deletes a media segment and its sidecar.
func (s *Storage) RemoveSegment(id core.MonitorID, sequence uint64) error {
	path := s.segmentPath(id, sequence)
	_ = os.Remove(path + ".crc16")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &core.ErrStorage{Path: path, Err: err}
	}
	return nil
}

// RemoveMonitor deletes all storage for a monitor.
func (s *Storage) RemoveMonitor(id core.MonitorID) error {
	dir := s.monitorDir(id)
	if err := os.RemoveAll(dir); err != nil {
		return &core.ErrStorage{Path: dir, Err: err}
	}
	return nil
}

func (s *Storage) segmentPath(id core.MonitorID, sequence uint64) string {
	return filepath.Join(s.monitorDir(id), fmt.Sprintf("segment_%05d.m4s", sequence))
}

// ListSegments returns the sequence numbers of every media segment currently
// on disk for a monitor, in ascending order.
func (s *Storage) ListSegments(id core.MonitorID) ([]uint64, error) {
	entries, err := os.ReadDir(s.monitorDir(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &core.ErrStorage{Path: s.monitorDir(id), Err: err}
	}

	var sequences []uint64
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "segment_") || !strings.HasSuffix(name, ".m4s") {
			continue
		}
		var seq uint64
		if _, err := fmt.Sscanf(name, "segment_%05d.m4s", &seq); err != nil {
			continue
		}
		sequences = append(sequences, seq)
	}

	for i := 1; i < len(sequences); i++ {
		for j := i; j > 0 && sequences[j-1] > sequences[j]; j-- {
			sequences[j-1], sequences[j] = sequences[j], sequences[j-1]
		}
	}
	return sequences, nil
}

// Sweep deletes every segment older than retention (by file mtime) whose
// sequence is not present in live, the set of sequences still referenced by
// the current playlist window. A playlist window of size 1 is legal; live
// need only contain that one sequence for it to survive the sweep.
func (s *Storage) Sweep(id core.MonitorID, retention time.Duration, live map[uint64]struct{}) (int, error) {
	sequences, err := s.ListSegments(id)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-retention)
	removed := 0
	for _, seq := range sequences {
		if _, keep := live[seq]; keep {
			continue
		}

		path := s.segmentPath(id, seq)
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return removed, &core.ErrStorage{Path: path, Err: err}
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		if err := s.RemoveSegment(id, seq); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// writeAtomic writes data to a temp file in the same directory then renames
// it into place, so readers never observe a partially written segment.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
