package provider

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/paritytech/zombienet-go/internal/fsys"
	"github.com/paritytech/zombienet-go/internal/procrunner"
)

// Native spawns nodes as local child processes under a supervisor script,
// per spec.md §4.C "native spawns local child processes, assigns random
// free ports, writes logs to files under base_dir".
type Native struct {
	FS      fsys.FS
	BaseDir string

	mu      sync.Mutex
	runner  *procrunner.Runner
	handles map[NodeHandle]*nativeNode
}

type nativeNode struct {
	name     string
	fifoPath string
	proc     *procrunner.Handle
	logFile  *os.File
}

// NewNative creates a Native provider rooted at baseDir.
func NewNative(fs fsys.FS, baseDir string) *Native {
	return &Native{
		FS:      fs,
		BaseDir: baseDir,
		runner:  procrunner.New(),
		handles: make(map[NodeHandle]*nativeNode),
	}
}

func (n *Native) CreateNamespace(ctx context.Context) error {
	return n.FS.CreateDir(ctx, n.BaseDir, 0o755)
}

func (n *Native) SpawnNode(ctx context.Context, opts SpawnOptions) (NodeHandle, error) {
	if err := n.FS.CreateDir(ctx, opts.BasePath, 0o755); err != nil {
		return "", fmt.Errorf("create base path for %s: %w", opts.Name, err)
	}

	fifoPath := FifoPath(opts.BasePath)
	script := SupervisorScript(fifoPath, opts.Command, opts.Args, "")
	scriptPath := opts.BasePath + "/supervisor.sh"
	if err := n.FS.Write(ctx, scriptPath, []byte(script), 0o755); err != nil {
		return "", fmt.Errorf("write supervisor script for %s: %w", opts.Name, err)
	}

	logFile, err := os.Create(opts.LogPath)
	if err != nil {
		return "", fmt.Errorf("create log file for %s: %w", opts.Name, err)
	}

	proc, err := n.runner.Spawn(ctx, "sh", []string{scriptPath}, opts.Env, opts.BasePath, logFile)
	if err != nil {
		logFile.Close()
		return "", fmt.Errorf("spawn supervisor for %s: %w", opts.Name, err)
	}

	handle := NodeHandle(fmt.Sprintf("pid:%d", proc.PID()))
	n.mu.Lock()
	n.handles[handle] = &nativeNode{name: opts.Name, fifoPath: fifoPath, proc: proc, logFile: logFile}
	n.mu.Unlock()

	return handle, nil
}

func (n *Native) lookup(handle NodeHandle) (*nativeNode, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	node, ok := n.handles[handle]
	if !ok {
		return nil, fmt.Errorf("unknown node handle %q", handle)
	}
	return node, nil
}

func (n *Native) CopyToNode(ctx context.Context, handle NodeHandle, src, dst string) error {
	if _, err := n.lookup(handle); err != nil {
		return err
	}
	return n.FS.Copy(ctx, src, dst)
}

func (n *Native) CopyFromNode(ctx context.Context, handle NodeHandle, src, dst string) error {
	if _, err := n.lookup(handle); err != nil {
		return err
	}
	return n.FS.Copy(ctx, src, dst)
}

func (n *Native) Exec(ctx context.Context, handle NodeHandle, cmd []string) (ExecResult, error) {
	if _, err := n.lookup(handle); err != nil {
		return ExecResult{}, err
	}
	if len(cmd) == 0 {
		return ExecResult{}, fmt.Errorf("exec: empty command")
	}
	var buf bytes.Buffer
	runner := procrunner.New()
	proc, err := runner.Spawn(ctx, cmd[0], cmd[1:], nil, "", &buf)
	if err != nil {
		return ExecResult{}, fmt.Errorf("exec %v: %w", cmd, err)
	}
	code, err := proc.Wait()
	if err != nil {
		return ExecResult{}, fmt.Errorf("exec %v: %w", cmd, err)
	}
	return ExecResult{Stdout: buf.String(), ExitCode: code}, nil
}

func (n *Native) Pause(ctx context.Context, handle NodeHandle) error {
	node, err := n.lookup(handle)
	if err != nil {
		return err
	}
	return SendCommand(ctx, node.fifoPath, CmdPause, 0)
}

func (n *Native) Resume(ctx context.Context, handle NodeHandle) error {
	node, err := n.lookup(handle)
	if err != nil {
		return err
	}
	return SendCommand(ctx, node.fifoPath, CmdResume, 0)
}

func (n *Native) Restart(ctx context.Context, handle NodeHandle, afterSeconds int) error {
	node, err := n.lookup(handle)
	if err != nil {
		return err
	}
	return SendCommand(ctx, node.fifoPath, CmdRestart, afterSeconds)
}

func (n *Native) Destroy(ctx context.Context, handle NodeHandle) error {
	node, err := n.lookup(handle)
	if err != nil {
		return err
	}
	_ = SendCommand(ctx, node.fifoPath, CmdQuit, 0)
	_ = node.proc.Kill()
	node.logFile.Close()

	n.mu.Lock()
	delete(n.handles, handle)
	n.mu.Unlock()
	return nil
}

func (n *Native) DestroyNamespace(ctx context.Context) error {
	n.mu.Lock()
	handles := make([]NodeHandle, 0, len(n.handles))
	for h := range n.handles {
		handles = append(handles, h)
	}
	n.mu.Unlock()

	for _, h := range handles {
		_ = n.Destroy(ctx, h)
	}
	return n.FS.Remove(ctx, n.BaseDir)
}

func (n *Native) Capabilities() Capabilities {
	return Capabilities{
		RequiresImage:            false,
		SupportsResourceLimits:   false,
		HasStableIntraNetworkDNS: false,
	}
}
