package client

import (
	"fmt"
	"io"
	"os"
)

// OpenReplay opens a recorded event stream. path "-" reads stdin. A positive
// chunkSize caps every Read so the stream arrives in small, arbitrarily
// aligned deliveries like it would off the network.
func OpenReplay(path string, chunkSize int) (io.ReadCloser, error) {
	var rc io.ReadCloser
	if path == "-" {
		rc = stdinPipe()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open replay file: %w", err)
		}
		rc = f
	}

	if chunkSize <= 0 {
		return rc, nil
	}
	return &chunkedReader{rc: rc, size: chunkSize}, nil
}

type chunkedReader struct {
	rc   io.ReadCloser
	size int
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if len(p) > r.size {
		p = p[:r.size]
	}
	return r.rc.Read(p)
}

func (r *chunkedReader) Close() error {
	return r.rc.Close()
}

// stdinPipe reads stdin through a pipe so that closing the returned reader
// unblocks a pending Read even while stdin itself has no data.
func stdinPipe() io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		_, err := io.Copy(pw, os.Stdin)
		pw.CloseWithError(err)
	}()
	return pr
}
