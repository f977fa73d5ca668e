package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrJobFailed is returned when a job ends cancelled or in error.
var ErrJobFailed = errors.New("job did not complete")

// JobState is the lifecycle position of a submitted job.
type JobState int

const (
	JobQueued JobState = iota
	JobRunning
	JobDone
	JobCancelled
	JobFailed
)

func (s JobState) String() string {
	switch s {
	case JobQueued:
		return "queued"
	case JobRunning:
		return "running"
	case JobDone:
		return "done"
	case JobCancelled:
		return "cancelled"
	case JobFailed:
		return "failed"
	default:
		return fmt.Sprintf("JobState(%d)", int(s))
	}
}

// JobStatus is one status observation of a job.
type JobStatus struct {
	State         JobState
	QueuePosition int // 0 when unknown or not queued
	Message       string
}

// Final reports whether the job will not change state again.
func (s JobStatus) Final() bool {
	return s.State == JobDone || s.State == JobCancelled || s.State == JobFailed
}

// Describe renders the status the way the monitor shows it.
func (s JobStatus) Describe() string {
	switch {
	case s.State == JobQueued && s.QueuePosition > 0:
		return fmt.Sprintf("job is queued (%d)", s.QueuePosition)
	case s.State == JobDone:
		return "job has successfully run"
	case s.Message != "":
		return fmt.Sprintf("job is %s: %s", s.State, s.Message)
	default:
		return fmt.Sprintf("job is %s", s.State)
	}
}

// Result is the measurement outcome of a finished job. Counts keys are
// fixed-width bitstrings with classical bit 0 rightmost.
type Result struct {
	JobID    string
	Backend  string
	Shots    int
	Counts   map[string]int
	Metadata map[string]any
}

// TotalCounts sums Counts.
func (r *Result) TotalCounts() int {
	n := 0
	for _, c := range r.Counts {
		n += c
	}
	return n
}

// Backend executes circuits.
type Backend interface {
	Name() string
	IsSimulator() bool
	Submit(ctx context.Context, c *Circuit, shots int) (Job, error)
}

// Job is a handle on a submitted circuit.
type Job interface {
	ID() string
	Status(ctx context.Context) (JobStatus, error)
	Result(ctx context.Context) (*Result, error)
}

// SimulatorBackend runs circuits on the in-process state vector.
type SimulatorBackend struct {
	name string

	mu   sync.Mutex
	seed uint64
}

// NewSimulatorBackend returns a simulator named name. Each submitted job
// draws from seed, seed+1, … so repeated runs differ but stay reproducible.
func NewSimulatorBackend(name string, seed uint64) *SimulatorBackend {
	return &SimulatorBackend{name: name, seed: seed}
}

// NewSimulatorBackendFromClock seeds the simulator from the current time.
func NewSimulatorBackendFromClock(name string) *SimulatorBackend {
	return NewSimulatorBackend(name, uint64(time.Now().UnixNano()))
}

func (b *SimulatorBackend) Name() string      { return b.name }
func (b *SimulatorBackend) IsSimulator() bool { return true }

func (b *SimulatorBackend) nextSeed() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.seed
	b.seed++
	return s
}

// Submit simulates c and samples shots outcomes. The returned job is
// already done.
func (b *SimulatorBackend) Submit(ctx context.Context, c *Circuit, shots int) (Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if shots <= 0 {
		return nil, errors.Newf("shots must be positive, got %d", shots)
	}
	if c.NumCbits() == 0 {
		return nil, errors.New("circuit has no classical bits to measure into")
	}

	state, err := SimulateCircuit(c)
	if err != nil {
		return nil, err
	}
	seed := b.nextSeed()
	counts := SampleCounts(OutcomeDistribution(c, state), shots, seed)

	id := uuid.NewString()
	GetLogger().Debug("simulated job",
		zap.String("job_id", id),
		zap.String("backend", b.name),
		zap.Int("shots", shots),
		zap.Uint64("seed", seed))

	return &simulatorJob{result: &Result{
		JobID:    id,
		Backend:  b.name,
		Shots:    shots,
		Counts:   counts,
		Metadata: map[string]any{"seed": seed},
	}}, nil
}

type simulatorJob struct {
	result *Result
}

func (j *simulatorJob) ID() string { return j.result.JobID }

func (j *simulatorJob) Status(context.Context) (JobStatus, error) {
	return JobStatus{State: JobDone}, nil
}

func (j *simulatorJob) Result(context.Context) (*Result, error) {
	return j.result, nil
}

// RemoteBackend submits circuits to the remote job service.
type RemoteBackend struct {
	client *IBMQClient
	name   string
}

// NewRemoteBackend returns a backend that runs on the named device.
func NewRemoteBackend(client *IBMQClient, name string) *RemoteBackend {
	return &RemoteBackend{client: client, name: name}
}

func (b *RemoteBackend) Name() string      { return b.name }
func (b *RemoteBackend) IsSimulator() bool { return false }

// Submit uploads the circuit as QASM. The client logs in on first use.
func (b *RemoteBackend) Submit(ctx context.Context, c *Circuit, shots int) (Job, error) {
	if shots <= 0 {
		return nil, errors.Newf("shots must be positive, got %d", shots)
	}
	resp, err := b.client.SubmitJob(ctx, c.QASM(), shots, b.name)
	if err != nil {
		return nil, err
	}
	GetLogger().Info("job submitted",
		zap.String("job_id", resp.ID),
		zap.String("backend", b.name),
		zap.Int("shots", shots))
	return &remoteJob{client: b.client, id: resp.ID, backend: b.name, shots: shots}, nil
}

type remoteJob struct {
	client  *IBMQClient
	id      string
	backend string
	shots   int
}

func (j *remoteJob) ID() string { return j.id }

func (j *remoteJob) Status(ctx context.Context) (JobStatus, error) {
	resp, err := j.client.GetJob(ctx, j.id)
	if err != nil {
		return JobStatus{}, err
	}
	return resp.jobStatus(), nil
}

// Result fetches the finished job. Calling it before the job is done is an error.
func (j *remoteJob) Result(ctx context.Context) (*Result, error) {
	resp, err := j.client.GetJob(ctx, j.id)
	if err != nil {
		return nil, err
	}
	if st := resp.jobStatus(); st.State != JobDone {
		return nil, errors.Wrapf(ErrJobFailed, "job %s is %s", j.id, st.State)
	}
	if len(resp.Qasms) == 0 || resp.Qasms[0].Result == nil {
		return nil, errors.Newf("job %s has no result", j.id)
	}
	data := resp.Qasms[0].Result.Data

	res := &Result{
		JobID:    j.id,
		Backend:  j.backend,
		Shots:    j.shots,
		Counts:   make(map[string]int, len(data.Counts)),
		Metadata: map[string]any{},
	}
	for k, v := range data.Counts {
		res.Counts[k] = v
	}
	if secs, err := data.computeTime(); err != nil {
		GetLogger().Warn("no timing metadata in result", zap.String("job_id", j.id), zap.Error(err))
	} else {
		res.Metadata["time_taken"] = secs
	}
	return res, nil
}
