// Package exporter orchestrates one postgres-exporter container per user:
// port allocation, idempotent replace-on-provision, service discovery
// publication, and collector reload signaling.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/errdefs"
	"github.com/docker/go-connections/nat"
	"github.com/sirupsen/logrus"

	"github.com/queryhawk/queryhawk/internal/models"
	"github.com/queryhawk/queryhawk/internal/pgurl"
)

// exporterPort is the fixed port postgres-exporter listens on inside the
// container.
const exporterPort = "9187/tcp"

// containerNamePrefix derives the deterministic per-user container name.
const containerNamePrefix = "postgres-exporter-"

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ContainerName returns the deterministic exporter container name for a
// user.
func ContainerName(userID string) string {
	return containerNamePrefix + userID
}

// Options configures the Manager.
type Options struct {
	Image         string
	Network       string
	ScrapeHost    string
	TargetsDir    string
	PrometheusURL string
}

// ContainerSpec enumerates every recognized field of an exporter container.
// It is validated before any engine call is made.
type ContainerSpec struct {
	Image         string
	Env           []string
	ExposedPort   string
	HostPort      int
	RestartPolicy string
	Labels        map[string]string
	Network       string
}

func (s *ContainerSpec) validate() error {
	if s.Image == "" {
		return errors.New("container spec: image is required")
	}

	if s.HostPort < 1 || s.HostPort > 65535 {
		return fmt.Errorf("container spec: host port %d out of range", s.HostPort)
	}

	if _, err := nat.NewPort(nat.SplitProtoPort(s.ExposedPort)); err != nil {
		return fmt.Errorf("container spec: exposed port %q: %w", s.ExposedPort, err)
	}

	if s.RestartPolicy == "" {
		return errors.New("container spec: restart policy is required")
	}

	return nil
}

// Manager provisions and tears down exporter containers. Operations for
// different users run in parallel; operations for the same user are
// serialized by a per-user lock held for the whole provision or cleanup.
type Manager struct {
	log    *logrus.Logger
	docker DockerAPI
	ports  *PortAllocator
	opts   Options
	client *http.Client

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
	targets   map[string]*models.MonitoredTarget
}

// NewManager creates a Manager.
func NewManager(log *logrus.Logger, docker DockerAPI, ports *PortAllocator, opts Options) *Manager {
	return &Manager{
		log:       log,
		docker:    docker,
		ports:     ports,
		opts:      opts,
		client:    &http.Client{Timeout: 5 * time.Second},
		userLocks: make(map[string]*sync.Mutex),
		targets:   make(map[string]*models.MonitoredTarget),
	}
}

// Provision makes "one running exporter for this user, bound to this
// database, discoverable by the collector" true. Re-provisioning an already
// monitored user replaces the previous exporter. preferredPort of 0 means
// pick the first free port in the configured range.
func (m *Manager) Provision(ctx context.Context, userID, connectionURI string, preferredPort int) (*models.MonitoredTarget, error) {
	if !userIDPattern.MatchString(userID) {
		return nil, ErrInvalidUserID
	}

	lock := m.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	// Preflight: the shared network the collector reaches exporters on must
	// exist. Its absence is an operator problem, not something to retry.
	if _, err := m.docker.NetworkInspect(ctx, m.opts.Network, types.NetworkInspectOptions{}); err != nil {
		return nil, fmt.Errorf("%w: docker network %q: %v", ErrEnvironmentNotReady, m.opts.Network, err)
	}

	name := ContainerName(userID)

	// Replace-if-exists makes provisioning idempotent under retries and
	// reconnects. A missing prior instance is not a failure.
	m.removeContainer(ctx, name)

	if prev := m.lookupTarget(userID); prev != nil {
		m.ports.Release(prev.ExporterPort)
	}

	port, err := m.ports.Allocate(preferredPort)
	if err != nil {
		m.discardReplaced(ctx, userID)

		return nil, err
	}

	spec := ContainerSpec{
		Image: m.opts.Image,
		// The connection string travels via the environment, never the
		// command line, so it stays out of process listings.
		Env:           []string{"DATA_SOURCE_NAME=" + connectionURI},
		ExposedPort:   exporterPort,
		HostPort:      port,
		RestartPolicy: "always",
		Labels: map[string]string{
			"user.id":                    userID,
			"exporter.type":              "postgres",
			"com.docker.compose.service": "postgres_exporter",
		},
		Network: m.opts.Network,
	}

	containerID, err := m.createAndStart(ctx, name, spec)
	if err != nil {
		m.ports.Release(port)
		m.discardReplaced(ctx, userID)

		return nil, err
	}

	rec := DiscoveryRecord{
		Targets: []string{m.opts.ScrapeHost + ":" + strconv.Itoa(port)},
		Labels: map[string]string{
			"user_id":  userID,
			"instance": name,
		},
	}

	if err := writeDiscoveryFile(m.opts.TargetsDir, userID, rec); err != nil {
		// Never leave a running exporter with no discovery record.
		m.removeContainer(ctx, name)
		m.ports.Release(port)
		m.discardReplaced(ctx, userID)

		return nil, err
	}

	m.signalReload(ctx)

	target := &models.MonitoredTarget{
		UserID:        userID,
		ConnectionURI: connectionURI,
		ExporterPort:  port,
		ContainerRef:  containerID,
		ContainerName: name,
	}
	m.storeTarget(target)

	m.log.WithFields(logrus.Fields{
		"user_id":   userID,
		"container": name,
		"port":      port,
		"database":  pgurl.Mask(connectionURI),
	}).Info("exporter provisioned")

	return target, nil
}

// Cleanup tears down the exporter and discovery record for userID. Safe to
// call for users that were never provisioned; "already absent" is success.
func (m *Manager) Cleanup(ctx context.Context, userID string) error {
	if !userIDPattern.MatchString(userID) {
		return ErrInvalidUserID
	}

	lock := m.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	name := ContainerName(userID)

	var errs []error

	if err := m.stopAndRemove(ctx, name); err != nil {
		errs = append(errs, err)
	}

	if err := removeDiscoveryFile(m.opts.TargetsDir, userID); err != nil {
		errs = append(errs, err)
	}

	m.signalReload(ctx)

	if prev := m.lookupTarget(userID); prev != nil {
		m.ports.Release(prev.ExporterPort)
		m.deleteTarget(userID)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	m.log.WithFields(logrus.Fields{"user_id": userID, "container": name}).Info("exporter cleaned up")

	return nil
}

// Target returns the active target for userID, or nil.
func (m *Manager) Target(userID string) *models.MonitoredTarget {
	return m.lookupTarget(userID)
}

// ActiveCount returns the number of currently provisioned exporters.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.targets)
}

// createAndStart creates and starts the exporter container. If creation
// fails because the image is not available locally, the image is pulled and
// creation retried exactly once.
func (m *Manager) createAndStart(ctx context.Context, name string, spec ContainerSpec) (string, error) {
	if err := spec.validate(); err != nil {
		return "", &ProvisionError{Stage: "validate", Err: err}
	}

	id, err := m.create(ctx, name, spec)
	if errdefs.IsNotFound(err) {
		m.log.WithField("image", spec.Image).Info("exporter image missing locally, pulling")

		if pullErr := m.pullImage(ctx, spec.Image); pullErr != nil {
			return "", &ProvisionError{Stage: "pull", Err: pullErr}
		}

		id, err = m.create(ctx, name, spec)
	}

	if err != nil {
		return "", &ProvisionError{Stage: "create", Err: err}
	}

	if err := m.docker.ContainerStart(ctx, id, types.ContainerStartOptions{}); err != nil {
		// Remove the created-but-never-started container so a retry does not
		// hit a name conflict.
		m.removeContainer(ctx, name)

		return "", &ProvisionError{Stage: "start", Err: err}
	}

	return id, nil
}

func (m *Manager) create(ctx context.Context, name string, spec ContainerSpec) (string, error) {
	exposed := nat.Port(spec.ExposedPort)

	cfg := &container.Config{
		Image:        spec.Image,
		Env:          spec.Env,
		ExposedPorts: nat.PortSet{exposed: struct{}{}},
		Labels:       spec.Labels,
	}

	hostCfg := &container.HostConfig{
		PortBindings: nat.PortMap{
			exposed: []nat.PortBinding{{HostPort: strconv.Itoa(spec.HostPort)}},
		},
		RestartPolicy: container.RestartPolicy{Name: spec.RestartPolicy},
		NetworkMode:   container.NetworkMode(spec.Network),
	}

	resp, err := m.docker.ContainerCreate(ctx, cfg, hostCfg, nil, nil, name)
	if err != nil {
		return "", err
	}

	return resp.ID, nil
}

func (m *Manager) pullImage(ctx context.Context, image string) error {
	ref := image
	if !strings.Contains(ref, ":") {
		ref += ":latest"
	}

	rc, err := m.docker.ImagePull(ctx, ref, types.ImagePullOptions{})
	if err != nil {
		return err
	}
	defer rc.Close()

	// The pull completes as the progress stream is consumed.
	_, err = io.Copy(io.Discard, rc)

	return err
}

// discardReplaced clears what is left of a replaced exporter after a failed
// re-provision. The previous container is already gone at that point, so its
// discovery record and target entry must not survive to advertise a port
// nothing is listening on.
func (m *Manager) discardReplaced(ctx context.Context, userID string) {
	if m.lookupTarget(userID) == nil {
		return
	}

	if err := removeDiscoveryFile(m.opts.TargetsDir, userID); err != nil {
		m.log.WithError(err).WithField("user_id", userID).Warn("removing stale discovery record failed")
	}

	m.deleteTarget(userID)
	m.signalReload(ctx)
}

// removeContainer stops and removes a container by name, tolerating every
// failure. Used where a leftover instance is merely in the way.
func (m *Manager) removeContainer(ctx context.Context, name string) {
	if err := m.stopAndRemove(ctx, name); err != nil {
		m.log.WithError(err).WithField("container", name).Warn("removing previous exporter failed")
	}
}

// stopAndRemove stops and removes a container by name. Absence at any step
// is success.
func (m *Manager) stopAndRemove(ctx context.Context, name string) error {
	info, err := m.docker.ContainerInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}

		return fmt.Errorf("inspecting container %q: %w", name, err)
	}

	if info.State != nil && info.State.Running {
		if err := m.docker.ContainerStop(ctx, info.ID, container.StopOptions{}); err != nil && !errdefs.IsNotFound(err) {
			return fmt.Errorf("stopping container %q: %w", name, err)
		}
	}

	if err := m.docker.ContainerRemove(ctx, info.ID, types.ContainerRemoveOptions{Force: true, RemoveVolumes: true}); err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("removing container %q: %w", name, err)
	}

	return nil
}

// signalReload POSTs to the collector's reload endpoint. Failures are logged
// and ignored; the collector picks up discovery changes on its own refresh
// cycle anyway.
func (m *Manager) signalReload(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.opts.PrometheusURL+"/-/reload", http.NoBody)
	if err != nil {
		m.log.WithError(err).Warn("building prometheus reload request failed")

		return
	}

	resp, err := m.client.Do(req)
	if err != nil {
		m.log.WithError(err).Warn("prometheus reload failed")

		return
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		m.log.WithField("status", resp.StatusCode).Warn("prometheus reload returned non-2xx")
	}
}

func (m *Manager) userLock(userID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		m.userLocks[userID] = lock
	}

	return lock
}

func (m *Manager) lookupTarget(userID string) *models.MonitoredTarget {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.targets[userID]
}

func (m *Manager) storeTarget(t *models.MonitoredTarget) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.targets[t.UserID] = t
}

func (m *Manager) deleteTarget(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.targets, userID)
}
