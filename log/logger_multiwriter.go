package log

import (
	"errors"
	"io"
)

var (
	errWriterAlreadyLoaded = errors.New("io.Writer already loaded")
	errWriterNotFound      = errors.New("io.Writer not found")
	errWriterIsNil         = errors.New("io.Writer is nil")
)

// Add appends a new writer to the multiwriter slice
func (mw *multiWriterHolder) Add(writer io.Writer) error {
	if writer == nil {
		return errWriterIsNil
	}
	for i := range mw.writers {
		if mw.writers[i] == writer {
			return errWriterAlreadyLoaded
		}
	}
	mw.writers = append(mw.writers, writer)
	return nil
}

// Remove removes existing writer from multiwriter slice
func (mw *multiWriterHolder) Remove(writer io.Writer) error {
	for i := range mw.writers {
		if mw.writers[i] != writer {
			continue
		}
		mw.writers[i] = mw.writers[len(mw.writers)-1]
		mw.writers[len(mw.writers)-1] = nil
		mw.writers = mw.writers[:len(mw.writers)-1]
		return nil
	}
	return errWriterNotFound
}

// Write concurrent safe Write for each writer
func (mw *multiWriterHolder) Write(p []byte) (int, error) {
	for i := range mw.writers {
		n, err := mw.writers[i].Write(p)
		if err != nil {
			return n, err
		}
		if n != len(p) {
			return n, io.ErrShortWrite
		}
	}
	return len(p), nil
}

// multiWriter make and return a new copy of multiWriterHolder
func multiWriter(writers ...io.Writer) (*multiWriterHolder, error) {
	mw := &multiWriterHolder{}
	for x := range writers {
		if err := mw.Add(writers[x]); err != nil {
			return nil, err
		}
	}
	return mw, nil
}

// AddWriter mirrors the output of every registered sub logger to w
func AddWriter(w io.Writer) error {
	if w == nil {
		return errWriterIsNil
	}
	mu.Lock()
	defer mu.Unlock()
	seen := make(map[*multiWriterHolder]bool)
	for _, sl := range subLoggers {
		mw, ok := sl.output.(*multiWriterHolder)
		if !ok {
			mw = &multiWriterHolder{}
			if sl.output != nil {
				mw.writers = []io.Writer{sl.output}
			}
			sl.output = mw
		}
		if seen[mw] {
			continue
		}
		seen[mw] = true
		if err := mw.Add(w); err != nil && !errors.Is(err, errWriterAlreadyLoaded) {
			return err
		}
	}
	return nil
}

// RemoveWriter stops mirroring sub logger output to w
func RemoveWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	for _, sl := range subLoggers {
		if mw, ok := sl.output.(*multiWriterHolder); ok {
			_ = mw.Remove(w)
		}
	}
}
