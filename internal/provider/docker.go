package provider

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
)

// Docker spawns one container per node on a private bridge network,
// adapted from the teacher's DockerDeployer (internal/deployer/docker.go)
// down to a single local daemon instead of a per-HostMachine client pool,
// since a test network has no multi-host placement concern (spec.md §1
// Non-goals).
type Docker struct {
	cli         *client.Client
	networkName string

	mu       sync.Mutex
	byName   map[NodeHandle]string // handle -> container id
	basePath map[NodeHandle]string // handle -> node base path, for the supervisor fifo
}

// NewDocker dials the local Docker daemon and names the private network
// after the test network's namespace.
func NewDocker(networkName string) (*Docker, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &Docker{
		cli:         cli,
		networkName: networkName,
		byName:      make(map[NodeHandle]string),
		basePath:    make(map[NodeHandle]string),
	}, nil
}

func (d *Docker) CreateNamespace(ctx context.Context) error {
	_, err := d.cli.NetworkCreate(ctx, d.networkName, network.CreateOptions{
		Driver: "bridge",
	})
	if err != nil {
		return fmt.Errorf("create docker network %s: %w", d.networkName, err)
	}
	return nil
}

func (d *Docker) SpawnNode(ctx context.Context, opts SpawnOptions) (NodeHandle, error) {
	if opts.Image == "" {
		return "", fmt.Errorf("docker provider requires an image for node %s", opts.Name)
	}

	env := make([]string, 0, len(opts.Env))
	for k, v := range opts.Env {
		env = append(env, k+"="+v)
	}

	exposed := nat.PortSet{}
	bindings := nat.PortMap{}
	for _, p := range []int{opts.Ports.RPC, opts.Ports.WS, opts.Ports.Prometheus, opts.Ports.P2P} {
		if p == 0 {
			continue
		}
		cp := nat.Port(strconv.Itoa(p) + "/tcp")
		exposed[cp] = struct{}{}
		bindings[cp] = []nat.PortBinding{{HostPort: strconv.Itoa(p)}}
	}

	fifoPath := FifoPath(opts.BasePath)
	script := SupervisorScript(fifoPath, opts.Command, opts.Args, FilesReadyMarker(opts.BasePath))

	cfg := &container.Config{
		Image:        opts.Image,
		Env:          env,
		ExposedPorts: exposed,
		// The supervisor script is bundled via the coreutils+shell image
		// layer and invoked as the container's entrypoint, reading the
		// actual node binary's invocation from the embedded script text.
		Entrypoint: []string{"sh", "-c", script},
	}
	hostCfg := &container.HostConfig{
		PortBindings: bindings,
		Resources: container.Resources{
			Memory: parseMemoryMB(opts.Resources.LimitsMemory) * 1024 * 1024,
		},
	}
	netCfg := &network.NetworkingConfig{
		EndpointsConfig: map[string]*network.EndpointSettings{
			d.networkName: {},
		},
	}

	if _, _, err := d.cli.ImageInspectWithRaw(ctx, opts.Image); err != nil {
		reader, pullErr := d.cli.ImagePull(ctx, opts.Image, image.PullOptions{})
		if pullErr != nil {
			return "", fmt.Errorf("pull image %s for %s: %w", opts.Image, opts.Name, pullErr)
		}
		_, _ = bytes.NewBuffer(nil).ReadFrom(reader)
		reader.Close()
	}

	resp, err := d.cli.ContainerCreate(ctx, cfg, hostCfg, netCfg, nil, opts.Name)
	if err != nil {
		return "", fmt.Errorf("create container %s: %w", opts.Name, err)
	}
	if err := d.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", fmt.Errorf("start container %s: %w", opts.Name, err)
	}

	handle := NodeHandle(resp.ID)
	d.mu.Lock()
	d.byName[handle] = resp.ID
	d.basePath[handle] = opts.BasePath
	d.mu.Unlock()
	return handle, nil
}

// CopyToNode archives src (a file or directory) as a tar stream rooted at
// dst's basename and uploads it via the Docker daemon's CopyToContainer API,
// the mechanism spec.md §4.C expects every containerized provider to offer
// so a node's staged base path (chain spec, keystore) can reach the
// container after it has been created.
func (d *Docker) CopyToNode(ctx context.Context, handle NodeHandle, src, dst string) error {
	archive, err := tarArchive(src, filepath.Base(dst))
	if err != nil {
		return fmt.Errorf("archive %s for copy to %s: %w", src, handle, err)
	}
	if err := d.cli.CopyToContainer(ctx, string(handle), filepath.Dir(dst), bytes.NewReader(archive), container.CopyToContainerOptions{}); err != nil {
		return fmt.Errorf("copy %s to %s on %s: %w", src, dst, handle, err)
	}
	return nil
}

// CopyFromNode downloads src out of the container via CopyFromContainer and
// extracts its tar stream to dst on the host.
func (d *Docker) CopyFromNode(ctx context.Context, handle NodeHandle, src, dst string) error {
	reader, _, err := d.cli.CopyFromContainer(ctx, string(handle), src)
	if err != nil {
		return fmt.Errorf("copy %s from %s: %w", src, handle, err)
	}
	defer reader.Close()
	if err := untarFirstEntry(reader, dst); err != nil {
		return fmt.Errorf("extract %s from %s to %s: %w", src, handle, dst, err)
	}
	return nil
}

func (d *Docker) Exec(ctx context.Context, handle NodeHandle, cmd []string) (ExecResult, error) {
	execCfg := container.ExecOptions{Cmd: cmd, AttachStdout: true, AttachStderr: true}
	execID, err := d.cli.ContainerExecCreate(ctx, string(handle), execCfg)
	if err != nil {
		return ExecResult{}, fmt.Errorf("exec create in %s: %w", handle, err)
	}
	resp, err := d.cli.ContainerExecAttach(ctx, execID.ID, container.ExecAttachOptions{})
	if err != nil {
		return ExecResult{}, fmt.Errorf("exec attach in %s: %w", handle, err)
	}
	defer resp.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, resp.Reader); err != nil {
		return ExecResult{}, fmt.Errorf("exec read output in %s: %w", handle, err)
	}
	inspect, err := d.cli.ContainerExecInspect(ctx, execID.ID)
	if err != nil {
		return ExecResult{}, fmt.Errorf("exec inspect in %s: %w", handle, err)
	}
	return ExecResult{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: inspect.ExitCode}, nil
}

func (d *Docker) sendSupervisorCommand(ctx context.Context, handle NodeHandle, cmd SupervisorCommand, arg int) error {
	line := string(cmd)
	if cmd == CmdRestart && arg > 0 {
		line = fmt.Sprintf("%s %d", cmd, arg)
	}
	d.mu.Lock()
	base := d.basePath[handle]
	d.mu.Unlock()
	_, err := d.Exec(ctx, handle, []string{"sh", "-c", fmt.Sprintf("echo %s > %s", line, FifoPath(base))})
	return err
}

func (d *Docker) Pause(ctx context.Context, handle NodeHandle) error {
	return d.sendSupervisorCommand(ctx, handle, CmdPause, 0)
}

func (d *Docker) Resume(ctx context.Context, handle NodeHandle) error {
	return d.sendSupervisorCommand(ctx, handle, CmdResume, 0)
}

func (d *Docker) Restart(ctx context.Context, handle NodeHandle, afterSeconds int) error {
	return d.sendSupervisorCommand(ctx, handle, CmdRestart, afterSeconds)
}

func (d *Docker) Destroy(ctx context.Context, handle NodeHandle) error {
	if err := d.cli.ContainerStop(ctx, string(handle), container.StopOptions{}); err != nil {
		return fmt.Errorf("stop container %s: %w", handle, err)
	}
	if err := d.cli.ContainerRemove(ctx, string(handle), container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("remove container %s: %w", handle, err)
	}
	d.mu.Lock()
	delete(d.byName, handle)
	delete(d.basePath, handle)
	d.mu.Unlock()
	return nil
}

func (d *Docker) DestroyNamespace(ctx context.Context) error {
	d.mu.Lock()
	handles := make([]NodeHandle, 0, len(d.byName))
	for h := range d.byName {
		handles = append(handles, h)
	}
	d.mu.Unlock()

	for _, h := range handles {
		_ = d.Destroy(ctx, h)
	}
	return d.cli.NetworkRemove(ctx, d.networkName)
}

func (d *Docker) Capabilities() Capabilities {
	return Capabilities{
		RequiresImage:            true,
		SupportsResourceLimits:   true,
		HasStableIntraNetworkDNS: true,
	}
}

func parseMemoryMB(limit string) int64 {
	if limit == "" {
		return 0
	}
	n, err := strconv.ParseInt(limit, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
