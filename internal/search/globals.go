package search

import (
	"bufio"
	"sync"
)

const (
	readBufferSize = 32 * 1024
	sniffSize      = 8000 // Bytes inspected for NUL when detecting binary files
	ellipsis       = "..."
)

var (
	// Directory names never descended into below a walk root
	skipDirs = map[string]bool{
		"build": true,
	}

	// Line reader pool
	readerPool = sync.Pool{
		New: func() interface{} {
			return bufio.NewReaderSize(nil, readBufferSize)
		},
	}
)
