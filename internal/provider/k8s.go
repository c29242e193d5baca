package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	restclient "k8s.io/client-go/rest"
	"k8s.io/client-go/tools/remotecommand"
)

// Kubernetes spawns one pod per node inside a per-network namespace, with
// resource requests/limits applied, grounded in the pod/container spec
// construction pattern from christianb93-bitcoin-controller's StatefulSet
// builder (internal/controller/controller.go), adapted from one
// long-lived StatefulSet per bitcoin node to one ephemeral Pod per
// zombienet node (spec.md §4.C).
type Kubernetes struct {
	clientset kubernetes.Interface
	config    *restclient.Config
	namespace string

	mu       sync.Mutex
	podName  map[NodeHandle]string
	basePath map[NodeHandle]string // handle -> node base path, for the supervisor fifo
}

// NewKubernetes builds a Kubernetes provider from an in-cluster or
// kubeconfig-derived rest.Config, scoping every node to namespace.
func NewKubernetes(config *restclient.Config, namespace string) (*Kubernetes, error) {
	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("create k8s clientset: %w", err)
	}
	return &Kubernetes{
		clientset: clientset,
		config:    config,
		namespace: namespace,
		podName:   make(map[NodeHandle]string),
		basePath:  make(map[NodeHandle]string),
	}, nil
}

func (k *Kubernetes) CreateNamespace(ctx context.Context) error {
	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: k.namespace}}
	_, err := k.clientset.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{})
	if err != nil && !apierrors.IsAlreadyExists(err) {
		return fmt.Errorf("create namespace %s: %w", k.namespace, err)
	}
	return nil
}

func (k *Kubernetes) SpawnNode(ctx context.Context, opts SpawnOptions) (NodeHandle, error) {
	if opts.Image == "" {
		return "", fmt.Errorf("k8s provider requires an image for node %s", opts.Name)
	}

	script := SupervisorScript(FifoPath(opts.BasePath), opts.Command, opts.Args, FilesReadyMarker(opts.BasePath))

	resources := corev1.ResourceRequirements{
		Requests: corev1.ResourceList{},
		Limits:   corev1.ResourceList{},
	}
	setQuantity(resources.Requests, corev1.ResourceCPU, opts.Resources.RequestsCPU)
	setQuantity(resources.Requests, corev1.ResourceMemory, opts.Resources.RequestsMemory)
	setQuantity(resources.Limits, corev1.ResourceCPU, opts.Resources.LimitsCPU)
	setQuantity(resources.Limits, corev1.ResourceMemory, opts.Resources.LimitsMemory)

	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      opts.Name,
			Namespace: k.namespace,
			Labels:    map[string]string{"zombienet/node": opts.Name},
		},
		Spec: corev1.PodSpec{
			RestartPolicy: corev1.RestartPolicyNever,
			Containers: []corev1.Container{
				{
					Name:      "node",
					Image:     opts.Image,
					Command:   []string{"sh", "-c", script},
					Env:       envVars(opts.Env),
					Resources: resources,
					Ports: []corev1.ContainerPort{
						{ContainerPort: int32(opts.Ports.RPC)},
						{ContainerPort: int32(opts.Ports.WS)},
						{ContainerPort: int32(opts.Ports.Prometheus)},
						{ContainerPort: int32(opts.Ports.P2P)},
					},
				},
			},
		},
	}

	created, err := k.clientset.CoreV1().Pods(k.namespace).Create(ctx, pod, metav1.CreateOptions{})
	if err != nil {
		return "", fmt.Errorf("create pod %s: %w", opts.Name, err)
	}

	handle := NodeHandle(created.Name)
	k.mu.Lock()
	k.podName[handle] = created.Name
	k.basePath[handle] = opts.BasePath
	k.mu.Unlock()
	return handle, nil
}

func setQuantity(list corev1.ResourceList, name corev1.ResourceName, value string) {
	if value == "" {
		return
	}
	if q, err := resource.ParseQuantity(value); err == nil {
		list[name] = q
	}
}

// CopyToNode archives src as a tar stream rooted at dst's basename and pipes
// it into `tar -xf -` run inside the pod via the exec subresource, the
// tar-over-exec mechanism spec.md §4.C expects from a containerized
// provider without a shared filesystem with the orchestrator.
func (k *Kubernetes) CopyToNode(ctx context.Context, handle NodeHandle, src, dst string) error {
	archive, err := tarArchive(src, filepath.Base(dst))
	if err != nil {
		return fmt.Errorf("archive %s for copy to %s: %w", src, handle, err)
	}
	cmd := []string{"tar", "-xf", "-", "-C", filepath.Dir(dst)}
	_, err = k.execStream(ctx, handle, cmd, bytes.NewReader(archive), nil)
	if err != nil {
		return fmt.Errorf("copy %s to %s on %s: %w", src, dst, handle, err)
	}
	return nil
}

// CopyFromNode streams src out of the pod as a tar archive via `tar -cf -`
// and extracts it to dst on the host.
func (k *Kubernetes) CopyFromNode(ctx context.Context, handle NodeHandle, src, dst string) error {
	cmd := []string{"tar", "-cf", "-", "-C", filepath.Dir(src), filepath.Base(src)}
	var stdout bytes.Buffer
	if _, err := k.execStream(ctx, handle, cmd, nil, &stdout); err != nil {
		return fmt.Errorf("copy %s from %s: %w", src, handle, err)
	}
	if err := untarFirstEntry(&stdout, dst); err != nil {
		return fmt.Errorf("extract %s from %s to %s: %w", src, handle, dst, err)
	}
	return nil
}

func (k *Kubernetes) Exec(ctx context.Context, handle NodeHandle, cmd []string) (ExecResult, error) {
	result, _ := k.execStream(ctx, handle, cmd, nil, nil)
	return result, nil
}

// execStream runs cmd inside a pod's "node" container, optionally streaming
// stdin in and capturing stdout into extraStdout (in addition to the
// returned ExecResult), for CopyToNode/CopyFromNode's tar streaming.
func (k *Kubernetes) execStream(ctx context.Context, handle NodeHandle, cmd []string, stdin io.Reader, extraStdout *bytes.Buffer) (ExecResult, error) {
	req := k.clientset.CoreV1().RESTClient().Post().
		Resource("pods").
		Name(string(handle)).
		Namespace(k.namespace).
		SubResource("exec").
		VersionedParams(&corev1.PodExecOptions{
			Container: "node",
			Command:   cmd,
			Stdin:     stdin != nil,
			Stdout:    true,
			Stderr:    true,
		}, scheme.ParameterCodec)

	executor, err := remotecommand.NewSPDYExecutor(k.config, "POST", req.URL())
	if err != nil {
		return ExecResult{}, fmt.Errorf("build exec stream for %s: %w", handle, err)
	}

	var stdout, stderr bytes.Buffer
	stdoutWriter := io.Writer(&stdout)
	if extraStdout != nil {
		stdoutWriter = io.MultiWriter(&stdout, extraStdout)
	}
	err = executor.StreamWithContext(ctx, remotecommand.StreamOptions{Stdin: stdin, Stdout: stdoutWriter, Stderr: &stderr})
	exitCode := 0
	if err != nil {
		exitCode = 1
	}
	return ExecResult{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: exitCode}, err
}

func (k *Kubernetes) sendSupervisorCommand(ctx context.Context, handle NodeHandle, cmd SupervisorCommand, arg int) error {
	line := string(cmd)
	if cmd == CmdRestart && arg > 0 {
		line = fmt.Sprintf("%s %d", cmd, arg)
	}
	k.mu.Lock()
	base := k.basePath[handle]
	k.mu.Unlock()
	_, err := k.Exec(ctx, handle, []string{"sh", "-c", fmt.Sprintf("echo %s > %s", line, FifoPath(base))})
	return err
}

func (k *Kubernetes) Pause(ctx context.Context, handle NodeHandle) error {
	return k.sendSupervisorCommand(ctx, handle, CmdPause, 0)
}

func (k *Kubernetes) Resume(ctx context.Context, handle NodeHandle) error {
	return k.sendSupervisorCommand(ctx, handle, CmdResume, 0)
}

func (k *Kubernetes) Restart(ctx context.Context, handle NodeHandle, afterSeconds int) error {
	return k.sendSupervisorCommand(ctx, handle, CmdRestart, afterSeconds)
}

func (k *Kubernetes) Destroy(ctx context.Context, handle NodeHandle) error {
	err := k.clientset.CoreV1().Pods(k.namespace).Delete(ctx, string(handle), metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("delete pod %s: %w", handle, err)
	}
	k.mu.Lock()
	delete(k.podName, handle)
	delete(k.basePath, handle)
	k.mu.Unlock()
	return nil
}

func (k *Kubernetes) DestroyNamespace(ctx context.Context) error {
	err := k.clientset.CoreV1().Namespaces().Delete(ctx, k.namespace, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("delete namespace %s: %w", k.namespace, err)
	}
	return nil
}

func (k *Kubernetes) Capabilities() Capabilities {
	return Capabilities{
		RequiresImage:            true,
		SupportsResourceLimits:   true,
		HasStableIntraNetworkDNS: true,
	}
}

func envVars(env map[string]string) []corev1.EnvVar {
	out := make([]corev1.EnvVar, 0, len(env))
	for k, v := range env {
		out = append(out, corev1.EnvVar{Name: k, Value: v})
	}
	return out
}
