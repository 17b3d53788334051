/*
 * Copyright (c) 2024, StreamWorks. All rights reserved.
 */
package main

import (
	"encoding/binary"
	"os"
	"sync"

	"github.com/streamworks/streamctl/cmn/nlog"
	"github.com/streamworks/streamctl/core/ctl"
)

// fileJournal is the durable, append-only metadata log (spec §2/§6):
// every record either operation emits is appended here, length-prefixed,
// before it is ever replayed into live state. Grounded on the teacher's
// volume/vmd.go append-and-fsync discipline for small, frequent records.
type fileJournal struct {
	mu     sync.Mutex
	f      *os.File
	offset int64
}

func newFileJournal(path string) (*fileJournal, error) {
	if path == "" {
		path = "controllerd.log"
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &fileJournal{f: f}, nil
}

// Records reads every record currently on disk, in order, for startup
// replay (spec §4.7).
func (j *fileJournal) Records() []ctl.Record {
	if _, err := j.f.Seek(0, 0); err != nil {
		nlog.Errorf("journal: seek failed: %v", err)
		return nil
	}
	var (
		recs   []ctl.Record
		lenBuf [4]byte
	)
	for {
		if _, err := readFull(j.f, lenBuf[:]); err != nil {
			break
		}
		n := binary.BigEndian.Uint32(lenBuf[:])
		buf := make([]byte, n)
		if _, err := readFull(j.f, buf); err != nil {
			nlog.Warningf("journal: truncated record at tail, ignoring: %v", err)
			break
		}
		rec, _, err := ctl.DecodeRecord(buf)
		if err != nil {
			nlog.Warningf("journal: failed to decode record, ignoring: %v", err)
			continue
		}
		recs = append(recs, rec)
		j.offset++
	}
	if _, err := j.f.Seek(0, 2); err != nil {
		nlog.Errorf("journal: seek to end failed: %v", err)
	}
	return recs
}

// Append writes records to the journal and fsyncs before returning,
// satisfying rpc.Journal.
func (j *fileJournal) Append(records []ctl.Record) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, rec := range records {
		buf := rec.EncodeMsg(nil)
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(buf)))
		if _, err := j.f.Write(lenBuf[:]); err != nil {
			return j.offset, err
		}
		if _, err := j.f.Write(buf); err != nil {
			return j.offset, err
		}
		j.offset++
	}
	return j.offset, j.f.Sync()
}

func readFull(f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
