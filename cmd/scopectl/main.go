// Command scopectl sends command lines to the daemon's device fifos and
// prints the response lines. One-shot mode sends a single command and
// waits for the terminal code; -jog starts an interactive paddle that
// turns arrow keys into mount jog commands and +/- into focus jogs.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

func main() {
	fifoDir := flag.String("fifodir", "/var/run/rigel-master/fifos", "directory holding the daemon's command fifos")
	jog := flag.Bool("jog", false, "interactive paddle mode")
	timeout := flag.Duration("timeout", 60*time.Second, "how long to wait for a terminal response code")
	flag.Parse()

	if *jog {
		if err := runPaddle(*fifoDir); err != nil {
			log.Fatalf("scopectl: %v", err)
		}
		return
	}

	args := flag.Args()
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: scopectl [-fifodir DIR] <tel|dome|focus> <command...>")
		fmt.Fprintln(os.Stderr, "       scopectl [-fifodir DIR] -jog")
		os.Exit(2)
	}

	device, command := args[0], strings.Join(args[1:], " ")
	fifoName, ok := fifoNames[strings.ToLower(device)]
	if !ok {
		log.Fatalf("scopectl: unknown device %q (want tel, dome or focus)", device)
	}

	code, err := sendCommand(*fifoDir, fifoName, command, *timeout, func(line string) {
		fmt.Println(line)
	})
	if err != nil {
		log.Fatalf("scopectl: %v", err)
	}
	if code < 0 {
		os.Exit(1)
	}
}

var fifoNames = map[string]string{
	"tel":   "Tel",
	"dome":  "Dome",
	"focus": "Focus",
}

// sendCommand writes one line to <dir>/<name>.in and streams response
// lines from <dir>/<name>.out to onLine until a terminal (code <= 0)
// response or the timeout.
func sendCommand(dir, name, command string, timeout time.Duration, onLine func(string)) (int, error) {
	out, err := os.OpenFile(filepath.Join(dir, name+".out"), os.O_RDONLY, 0)
	if err != nil {
		return 0, fmt.Errorf("open response fifo: %w (is scoped running?)", err)
	}
	defer out.Close()

	in, err := os.OpenFile(filepath.Join(dir, name+".in"), os.O_WRONLY, 0)
	if err != nil {
		return 0, fmt.Errorf("open command fifo: %w (is scoped running?)", err)
	}
	if _, err := fmt.Fprintln(in, command); err != nil {
		in.Close()
		return 0, fmt.Errorf("write command: %w", err)
	}
	in.Close()

	type result struct {
		code int
		err  error
	}
	done := make(chan result, 1)
	go func() {
		scanner := bufio.NewScanner(out)
		for scanner.Scan() {
			line := scanner.Text()
			onLine(line)
			code, perr := parseCode(line)
			if perr != nil {
				continue
			}
			if code <= 0 {
				done <- result{code: code}
				return
			}
		}
		done <- result{err: fmt.Errorf("response fifo closed: %v", scanner.Err())}
	}()

	select {
	case r := <-done:
		return r.code, r.err
	case <-time.After(timeout):
		return 0, fmt.Errorf("timed out after %v waiting for a terminal response", timeout)
	}
}

func parseCode(line string) (int, error) {
	fields := strings.SplitN(strings.TrimSpace(line), " ", 2)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty response line")
	}
	return strconv.Atoi(fields[0])
}
