package costs

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aclements/go-perf/perffile"
	"github.com/aclements/go-perf/perfsession"
)

// AddrResolver maps sampled instruction pointers back to the symbols of the
// profiled object.
type AddrResolver interface {
	// ObjAddr translates an instruction pointer observed inside a mapping
	// into a virtual address of the object itself.
	ObjAddr(ip, mapStart, mapFileOff uint64) uint64
	// FindAddr returns the name of the function containing va.
	FindAddr(va uint64) (name string, ok bool)
}

// FromPerf aggregates a perf.data profile into per-symbol self costs for
// object. Every distinct event in the profile becomes one cost type; each
// sample adds its period to the sampled instruction address. Samples that
// fall outside object's mappings are counted but otherwise ignored.
func FromPerf(profile, object string, resolve AddrResolver) (*Results, error) {
	f, err := perffile.Open(profile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	res := &Results{Symbols: make(map[string]*Symbol)}
	typeIdx := make(map[*perffile.EventAttr]int)
	s := perfsession.New(f)

	base := filepath.Base(object)
	samples, unmapped, foreign := 0, 0, 0

	rs := f.Records(perffile.RecordsFileOrder)
	for rs.Next() {
		r := rs.Record
		s.Update(r)

		sample, ok := r.(*perffile.RecordSample)
		if !ok {
			continue
		}
		if sample.Format&perffile.SampleFormatIP == 0 || sample.EventAttr == nil {
			continue
		}
		samples++

		pid := s.LookupPID(sample.PID)
		if pid == nil {
			unmapped++
			continue
		}
		mmap := pid.LookupMmap(sample.IP)
		if mmap == nil {
			unmapped++
			continue
		}
		if filepath.Base(mmap.Filename) != base {
			foreign++
			continue
		}

		ti, ok := typeIdx[sample.EventAttr]
		if !ok {
			ti = len(res.Types)
			typeIdx[sample.EventAttr] = ti
			res.Types = append(res.Types, Type{Name: eventName(sample.EventAttr.Event)})
		}

		weight := sample.Period
		if weight == 0 {
			weight = 1
		}

		addr := resolve.ObjAddr(sample.IP, mmap.Addr, mmap.FileOffset)
		name, ok := resolve.FindAddr(addr)
		if !ok {
			name = "[unknown]"
		}
		res.Add(name, addr, ti, weight)
		res.Types[ti].Total += weight
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", profile, err)
	}
	if samples == 0 {
		return nil, fmt.Errorf("%s contains no samples", profile)
	}
	if unmapped > 0 {
		slog.Warn("samples in unmapped regions", "profile", profile, "count", unmapped)
	}
	if foreign > 0 {
		slog.Debug("samples outside profiled object", "object", base, "count", foreign)
	}

	return res, nil
}

var hardwareNames = map[perffile.EventHardwareID]string{
	perffile.EventHardwareIDCPUCycles:             "cycles",
	perffile.EventHardwareIDInstructions:          "instructions",
	perffile.EventHardwareIDCacheReferences:       "cache-references",
	perffile.EventHardwareIDCacheMisses:           "cache-misses",
	perffile.EventHardwareIDBranchInstructions:    "branches",
	perffile.EventHardwareIDBranchMisses:          "branch-misses",
	perffile.EventHardwareIDBusCycles:             "bus-cycles",
	perffile.EventHardwareIDStalledCyclesFrontend: "stalled-cycles-frontend",
	perffile.EventHardwareIDStalledCyclesBackend:  "stalled-cycles-backend",
	perffile.EventHardwareIDRefCPUCycles:          "ref-cycles",
}

var softwareNames = map[perffile.EventSoftware]string{
	perffile.EventSoftwareCPUClock:        "cpu-clock",
	perffile.EventSoftwareTaskClock:       "task-clock",
	perffile.EventSoftwarePageFaults:      "page-faults",
	perffile.EventSoftwareContextSwitches: "context-switches",
	perffile.EventSoftwareCPUMigrations:   "cpu-migrations",
	perffile.EventSoftwarePageFaultsMin:   "minor-faults",
	perffile.EventSoftwarePageFaultsMaj:   "major-faults",
	perffile.EventSoftwareAlignmentFaults: "alignment-faults",
	perffile.EventSoftwareEmulationFaults: "emulation-faults",
}

var hwCacheNames = map[perffile.HWCache]string{
	perffile.HWCacheL1D:  "L1-dcache",
	perffile.HWCacheL1I:  "L1-icache",
	perffile.HWCacheLL:   "LLC",
	perffile.HWCacheDTLB: "dTLB",
	perffile.HWCacheITLB: "iTLB",
	perffile.HWCacheBPU:  "branch",
	perffile.HWCacheNode: "node",
}

var hwCacheOpNames = map[perffile.HWCacheOp]string{
	perffile.HWCacheOpRead:     "load",
	perffile.HWCacheOpWrite:    "store",
	perffile.HWCacheOpPrefetch: "prefetch",
}

// eventName renders an event the way the perf tool names it. Events without
// a conventional name fall back to their raw encoding.
func eventName(e perffile.Event) string {
	if e == nil {
		return "unknown"
	}
	switch e := e.(type) {
	case perffile.EventHardware:
		if name, ok := hardwareNames[e.ID]; ok {
			return name
		}
	case perffile.EventSoftware:
		if name, ok := softwareNames[e]; ok {
			return name
		}
	case perffile.EventHWCache:
		level, lok := hwCacheNames[e.Level]
		op, ook := hwCacheOpNames[e.Op]
		if lok && ook {
			if e.Result == perffile.HWCacheResultMiss {
				return fmt.Sprintf("%s-%s-misses", level, op)
			}
			return fmt.Sprintf("%s-%ss", level, op)
		}
	case perffile.EventTracepoint:
		return fmt.Sprintf("tracepoint:%d", uint64(e))
	case perffile.EventRaw:
		return fmt.Sprintf("raw:%#x", uint64(e))
	}
	g := e.Generic()
	return fmt.Sprintf("event-%d:%#x", g.Type, g.ID)
}
