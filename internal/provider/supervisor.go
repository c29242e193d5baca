package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// SupervisorCommand is one of the single-line commands the supervisor
// script understands, read from its named pipe (spec.md §4.C "supervisor
// protocol").
type SupervisorCommand string

const (
	CmdStart   SupervisorCommand = "start"
	CmdPause   SupervisorCommand = "pause"
	CmdResume  SupervisorCommand = "resume"
	CmdRestart SupervisorCommand = "restart"
	CmdQuit    SupervisorCommand = "quit"
)

// FifoPath is where every provider places the supervisor's command pipe,
// relative to a node's base path.
func FifoPath(basePath string) string {
	return filepath.Join(basePath, "supervisor.fifo")
}

// FilesReadyMarker is the path the supervisor script polls for before
// starting the node binary, for providers where the node's files (chain
// spec, keystore) can only be pushed in after the container/pod exists
// (spec.md §4.C; see docker.go/k8s.go CopyToNode).
func FilesReadyMarker(basePath string) string {
	return filepath.Join(basePath, ".files-ready")
}

// SupervisorScript renders the POSIX shell script every provider variant
// runs as the node process's parent: it starts the real binary as a child,
// then reads single-line commands off the named pipe and acts on them
// (spec.md §4.C). All three providers (native, docker, k8s) embed this same
// script so `pause`/`resume`/`restart` behave identically regardless of
// backend. When waitFile is non-empty, the script blocks until that path
// exists before starting the binary, giving a containerized provider a
// window to copy staged files in after the container/pod is created.
func SupervisorScript(fifoPath, binary string, args []string, waitFile string) string {
	var quoted []string
	for _, a := range args {
		quoted = append(quoted, shellQuote(a))
	}
	waitBlock := ""
	if waitFile != "" {
		waitBlock = fmt.Sprintf("while [ ! -f %s ]; do sleep 0.2; done\n", shellQuote(waitFile))
	}
	return fmt.Sprintf(`#!/bin/sh
set -e
FIFO=%s
BIN=%s
ARGS="%s"

mkdir -p "$(dirname "$FIFO")"
mkfifo "$FIFO" 2>/dev/null || true

%sstart() {
  "$BIN" $ARGS &
  CHILD=$!
}

start

while read -r cmd < "$FIFO"; do
  case "$cmd" in
    pause) kill -STOP "$CHILD" ;;
    resume) kill -CONT "$CHILD" ;;
    restart*)
      secs=$(echo "$cmd" | cut -s -d' ' -f2)
      kill -TERM "$CHILD" 2>/dev/null || true
      wait "$CHILD" 2>/dev/null || true
      [ -n "$secs" ] && sleep "$secs"
      start
      ;;
    quit)
      kill -TERM "$CHILD" 2>/dev/null || true
      exit 0
      ;;
  esac
done
`, shellQuote(fifoPath), shellQuote(binary), strings.Join(quoted, " "), waitBlock)
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// SendCommand writes a single-line command to the supervisor's named pipe.
// Used directly by the native provider (same host); docker/k8s send the
// equivalent command via Exec against the container/pod's own fifo.
func SendCommand(ctx context.Context, fifoPath string, cmd SupervisorCommand, arg int) error {
	line := string(cmd)
	if cmd == CmdRestart && arg > 0 {
		line = fmt.Sprintf("%s %s", cmd, strconv.Itoa(arg))
	}

	done := make(chan error, 1)
	go func() {
		f, err := os.OpenFile(fifoPath, os.O_WRONLY, 0)
		if err != nil {
			done <- fmt.Errorf("open supervisor fifo %q: %w", fifoPath, err)
			return
		}
		defer f.Close()
		_, err = f.WriteString(line + "\n")
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(10 * time.Second):
		return fmt.Errorf("timed out writing supervisor command %q to %q", cmd, fifoPath)
	}
}
