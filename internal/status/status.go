// Package status reports the installation state and the health of the
// supervised worker process.
package status

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/shirou/gopsutil/v3/process"

	"autoresponder/internal/installer"
)

// ProcessInfo holds live metrics for the worker process.
type ProcessInfo struct {
	PID        int32
	Name       string
	Cmdline    string
	RSS        uint64
	CPUPercent float64
	StartedAt  time.Time
	Uptime     time.Duration
}

// Report is the combined status of one label.
type Report struct {
	Label          string
	Installed      bool
	DescriptorPath string
	Registered     bool
	LastExitStatus int
	Process        *ProcessInfo
	StdoutPath     string
	StderrPath     string
}

// ProcessLookup returns metrics for pid. It exists so tests can avoid
// depending on real processes.
type ProcessLookup func(ctx context.Context, pid int32) (*ProcessInfo, error)

// Inspector builds status reports.
type Inspector struct {
	inst    *installer.Installer
	clock   clock.Clock
	process ProcessLookup
}

// NewInspector creates an Inspector using the wall clock and gopsutil.
func NewInspector(inst *installer.Installer) *Inspector {
	return &Inspector{
		inst:    inst,
		clock:   clock.New(),
		process: lookupProcess,
	}
}

// WithClock replaces the clock used for uptime.
func (i *Inspector) WithClock(c clock.Clock) *Inspector {
	i.clock = c
	return i
}

// WithProcessLookup replaces the process metrics source.
func (i *Inspector) WithProcessLookup(fn ProcessLookup) *Inspector {
	i.process = fn
	return i
}

// Inspect gathers the current report.
func (i *Inspector) Inspect(ctx context.Context) (Report, error) {
	cfg := i.inst.Config()
	rep := Report{
		Label:      cfg.Label,
		StdoutPath: cfg.StdoutPath(),
		StderrPath: cfg.StderrPath(),
	}

	st, err := i.inst.State(ctx)
	if err != nil {
		return rep, err
	}
	rep.Installed = st.Installed
	rep.DescriptorPath = st.DescriptorPath
	if st.Descriptor != nil {
		rep.StdoutPath = st.Descriptor.StdoutPath
		rep.StderrPath = st.Descriptor.StderrPath
	}

	if st.Registration == nil {
		return rep, nil
	}
	rep.Registered = true
	rep.LastExitStatus = st.Registration.LastExitStatus

	if !st.Registration.Running() {
		return rep, nil
	}
	info, err := i.process(ctx, int32(st.Registration.PID))
	if err != nil {
		// launchd may report a PID that has just exited.
		info = &ProcessInfo{PID: int32(st.Registration.PID)}
	}
	if !info.StartedAt.IsZero() {
		info.Uptime = i.clock.Since(info.StartedAt).Truncate(time.Second)
	}
	rep.Process = info
	return rep, nil
}

func lookupProcess(ctx context.Context, pid int32) (*ProcessInfo, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return nil, err
	}

	info := &ProcessInfo{PID: pid}
	info.Name, _ = p.NameWithContext(ctx)
	info.Cmdline, _ = p.CmdlineWithContext(ctx)
	if mem, err := p.MemoryInfoWithContext(ctx); err == nil && mem != nil {
		info.RSS = mem.RSS
	}
	info.CPUPercent, _ = p.CPUPercentWithContext(ctx)
	if created, err := p.CreateTimeWithContext(ctx); err == nil {
		info.StartedAt = time.UnixMilli(created)
	}
	return info, nil
}

// State returns a one-word summary.
func (r Report) State() string {
	switch {
	case !r.Installed && !r.Registered:
		return "not installed"
	case !r.Installed && r.Registered:
		return "registered without descriptor"
	case !r.Registered:
		return "installed, not loaded"
	case r.Process == nil:
		return "installed, not running"
	default:
		return "running"
	}
}

// Render writes a human-readable report.
func Render(w io.Writer, r Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Label:       %s\n", r.Label)
	fmt.Fprintf(&b, "State:       %s\n", r.State())
	if r.DescriptorPath != "" {
		fmt.Fprintf(&b, "Descriptor:  %s\n", r.DescriptorPath)
	}
	if r.Registered && r.Process == nil {
		fmt.Fprintf(&b, "Last exit:   %d\n", r.LastExitStatus)
	}
	if p := r.Process; p != nil {
		fmt.Fprintf(&b, "PID:         %d\n", p.PID)
		if p.Cmdline != "" {
			fmt.Fprintf(&b, "Command:     %s\n", p.Cmdline)
		}
		if p.Uptime > 0 {
			fmt.Fprintf(&b, "Uptime:      %s\n", p.Uptime)
		}
		fmt.Fprintf(&b, "Memory:      %.1f MiB\n", float64(p.RSS)/(1<<20))
		fmt.Fprintf(&b, "CPU:         %.1f%%\n", p.CPUPercent)
	}
	fmt.Fprintf(&b, "Stdout log:  %s\n", r.StdoutPath)
	fmt.Fprintf(&b, "Stderr log:  %s\n", r.StderrPath)

	_, err := io.WriteString(w, b.String())
	return err
}
