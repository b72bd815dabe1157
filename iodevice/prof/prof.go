// Package prof is the D_PROF device backend: a profiling stream that
// captures a CPU profile for the duration it is open and parses the
// captured pprof data back into a summary, the way a host reading
// biscuit's D_PROF fd would. Capture uses the standard runtime/pprof
// writer (there is no alternative capture path — it is the only thing
// that can drive the Go runtime's own profiler); the resulting bytes
// are then parsed with the pack's github.com/google/pprof/profile
// reader rather than left as an opaque blob, so SampleCount can report
// sample counts without shelling out to an external tool.
package prof

import (
	"bytes"
	"runtime/pprof"

	"github.com/google/pprof/profile"

	"kcore/internal/klog"
	"kcore/internal/status"
)

var log = klog.Sub("prof")

// Device is one open D_PROF stream: Start begins CPU profiling into an
// internal buffer, Stop ends it and parses the result.
type Device struct {
	buf     bytes.Buffer
	running bool
}

// New returns an unopened profiling device.
func New() *Device { return &Device{} }

// Start begins capturing a CPU profile. It is an error to Start twice
// without an intervening Stop.
func (d *Device) Start() status.Err {
	if d.running {
		return status.INVAL
	}
	if err := pprof.StartCPUProfile(&d.buf); err != nil {
		log.WithField("err", err).Warn("prof: StartCPUProfile failed")
		return status.IO
	}
	d.running = true
	return status.OK
}

// Stop ends capture and parses the collected profile.
func (d *Device) Stop() (*profile.Profile, status.Err) {
	if !d.running {
		return nil, status.INVAL
	}
	pprof.StopCPUProfile()
	d.running = false

	p, err := profile.ParseData(d.buf.Bytes())
	if err != nil {
		log.WithField("err", err).Warn("prof: parsing captured profile failed")
		return nil, status.IO
	}
	return p, status.OK
}

// SampleCount reports how many samples a stopped profile captured, for
// a quick health check without walking the full profile.
func SampleCount(p *profile.Profile) int {
	return len(p.Sample)
}
