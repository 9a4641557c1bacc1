package daemon

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"syscall"

	"github.com/jmhannon/rigel-master/internal/fifoproto"
)

// Fifo is one device's command channel: a <name>.in named pipe clients
// write request lines to, and a <name>.out pipe the daemon writes
// response lines to. Both ends are opened read-write so neither open
// blocks waiting for a peer and a client disconnecting never delivers
// EOF to the reader loop.
type Fifo struct {
	name  string
	in    *os.File
	out   *os.File
	lines chan string
}

// OpenFifo creates (if needed) and opens the <dir>/<name>.in and
// <dir>/<name>.out pipes and starts the reader goroutine.
func OpenFifo(dir, name string) (*Fifo, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("fifo: create dir %s: %w", dir, err)
	}

	inPath := filepath.Join(dir, name+".in")
	outPath := filepath.Join(dir, name+".out")
	for _, p := range []string{inPath, outPath} {
		if err := syscall.Mkfifo(p, 0666); err != nil && !os.IsExist(err) {
			return nil, fmt.Errorf("fifo: mkfifo %s: %w", p, err)
		}
	}

	in, err := os.OpenFile(inPath, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("fifo: open %s: %w", inPath, err)
	}
	out, err := os.OpenFile(outPath, os.O_RDWR, 0)
	if err != nil {
		in.Close()
		return nil, fmt.Errorf("fifo: open %s: %w", outPath, err)
	}

	f := &Fifo{name: name, in: in, out: out, lines: make(chan string, 16)}
	go f.readLoop()
	return f, nil
}

func (f *Fifo) readLoop() {
	scanner := bufio.NewScanner(f.in)
	for scanner.Scan() {
		f.lines <- scanner.Text()
	}
	// Only reachable when the .in file is closed during shutdown.
	close(f.lines)
}

// Lines implements CommandSource.
func (f *Fifo) Lines() <-chan string { return f.lines }

// WriteResponse writes one "<code> <text>" line to the .out pipe. A
// write error is logged, not propagated: a reader that went away must
// not take the daemon down with it.
func (f *Fifo) WriteResponse(r fifoproto.Response) {
	if _, err := fmt.Fprintf(f.out, "%s\n", r.String()); err != nil {
		log.Printf("fifo %s: write response: %v", f.name, err)
	}
}

// Close closes both pipe ends; the reader goroutine exits on the next
// scan.
func (f *Fifo) Close() error {
	errIn := f.in.Close()
	errOut := f.out.Close()
	if errIn != nil {
		return errIn
	}
	return errOut
}
