package main

import (
	"bytes"
	"io"
	"os"
	"testing"
)

// captureStd redirects os.Stdout and os.Stderr to pipes while fn runs and
// returns what was written to each. The pipes are drained concurrently so
// fn may write more than the OS pipe buffer holds.
func captureStd(t *testing.T, fn func()) (stdout, stderr string) {
	t.Helper()

	oldOut, oldErr := os.Stdout, os.Stderr
	outR, outW, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe(): %v", err)
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe(): %v", err)
	}

	drain := func(r *os.File, dst *bytes.Buffer, done chan<- struct{}) {
		_, _ = io.Copy(dst, r)
		_ = r.Close()
		close(done)
	}
	var outBuf, errBuf bytes.Buffer
	outDone, errDone := make(chan struct{}), make(chan struct{})
	go drain(outR, &outBuf, outDone)
	go drain(errR, &errBuf, errDone)

	os.Stdout, os.Stderr = outW, errW
	defer func() {
		os.Stdout, os.Stderr = oldOut, oldErr
		_ = outW.Close()
		_ = errW.Close()
		<-outDone
		<-errDone
		stdout, stderr = outBuf.String(), errBuf.String()
	}()
	fn()
	return
}
