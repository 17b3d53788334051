// Package nlog is the controller's logger: severity-leveled and
// file-rotating; each line is written straight to the file (no buffering). Adapted from the teacher's nlog (same public API and
// severity model); the byte-pool/double-buffer internals were dropped
// because they depended on sibling helpers outside the retrieved file
// set, so this version favors a single mutex-guarded writer instead.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package nlog

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

type severity int

const (
	sevInfo severity = iota
	sevWarn
	sevErr
)

var sevChar = [...]byte{'I', 'W', 'E'}

const defaultMaxSize = 64 * 1024 * 1024

var (
	MaxSize int64 = defaultMaxSize

	toStderr     bool
	alsoToStderr bool
	logDir       string
	title        string

	mu      sync.Mutex
	file    *os.File
	written int64
	last    time.Time

	pid = os.Getpid()
)

func log(sev severity, depth int, format string, args ...any) {
	line := format1(sev, depth+1, format, args...)

	mu.Lock()
	defer mu.Unlock()

	last = time.Now()
	if toStderr || alsoToStderr || sev >= sevErr {
		os.Stderr.WriteString(line)
	}
	if toStderr {
		return
	}
	if file == nil {
		if err := rotate(); err != nil {
			os.Stderr.WriteString("nlog: " + err.Error() + "\n")
			return
		}
	}
	n, _ := file.WriteString(line)
	written += int64(n)
	if written >= MaxSize {
		file.Close()
		file = nil
	}
}

func format1(sev severity, depth int, format string, args ...any) string {
	var b strings.Builder
	b.WriteByte(sevChar[sev])
	b.WriteByte(' ')
	b.WriteString(time.Now().Format("15:04:05.000000"))
	b.WriteByte(' ')
	if _, fn, ln, ok := runtime.Caller(depth + 2); ok {
		if idx := strings.LastIndexByte(fn, filepath.Separator); idx >= 0 {
			fn = fn[idx+1:]
		}
		b.WriteString(fn)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(ln))
		b.WriteByte(' ')
	}
	if format == "" {
		fmt.Fprintln(&b, args...)
	} else {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}
	return b.String()
}

func rotate() error {
	if logDir == "" {
		file = os.Stderr
		return nil
	}
	name := fmt.Sprintf("streamctl.%d.%s.log", pid, time.Now().Format("20060102-150405"))
	f, err := os.OpenFile(filepath.Join(logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	file = f
	written = 0
	if title != "" {
		file.WriteString(title + "\n")
	}
	return nil
}
