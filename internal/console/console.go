// Package console prints colored operator output for the CLI subcommands.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"portlink-backend/internal/sweep"
)

// Printer writes colored status lines.
type Printer struct {
	out io.Writer
	err io.Writer
}

// New returns a Printer on stdout/stderr.
func New() *Printer {
	return &Printer{out: os.Stdout, err: os.Stderr}
}

// NewWithWriters returns a Printer on the given writers.
func NewWithWriters(out, err io.Writer) *Printer {
	return &Printer{out: out, err: err}
}

// Success prints a message in green.
func (p *Printer) Success(msg string, args ...any) {
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintln(p.out, green("✓ "+fmt.Sprintf(msg, args...)))
}

// Info prints a message in cyan.
func (p *Printer) Info(msg string, args ...any) {
	cyan := color.New(color.FgCyan).SprintFunc()
	fmt.Fprintln(p.out, cyan(fmt.Sprintf(msg, args...)))
}

// Warning prints a message in yellow.
func (p *Printer) Warning(msg string, args ...any) {
	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Fprintln(p.out, yellow("⚠ "+fmt.Sprintf(msg, args...)))
}

// Error prints a message in red on the error writer.
func (p *Printer) Error(msg string, err error, args ...any) {
	red := color.New(color.FgRed).SprintFunc()
	line := fmt.Sprintf(msg, args...)
	if err != nil {
		line += ": " + err.Error()
	}
	fmt.Fprintln(p.err, red("✗ "+line))
}

// Report prints a sweep summary, one warning per failed device.
func (p *Printer) Report(r sweep.Report) {
	if r.Devices == 0 {
		p.Info("No templated devices found")
		return
	}
	for _, f := range r.Failures {
		p.Warning("Device %d (%s): %v", f.DeviceID, f.DeviceName, f.Err)
	}
	if len(r.Failures) > 0 {
		p.Error("Reconciled %d devices, %d failed", nil, r.Devices, len(r.Failures))
		return
	}
	p.Success("Reconciled %d devices, %d ports created", r.Devices, r.PortsCreated)
}
