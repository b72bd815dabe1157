// Command kernelsim is the Go-native analogue of the arch boot glue
// that is otherwise out of scope for this module: it reads a boot
// config, brings up the physical and virtual memory managers on a
// simulated MMU, registers a trap vector and an I/O device, discovers
// a disk's partitions, mounts a filesystem, and runs a worker thread
// through the scheduler, logging each step the way a real
// boot sequence would.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"kcore/arch"
	"kcore/arch/simmu"
	"kcore/disk"
	"kcore/internal/config"
	"kcore/internal/klog"
	"kcore/internal/status"
	"kcore/iodevice"
	"kcore/iodevice/prof"
	"kcore/iodevice/stream"
	"kcore/kpanic"
	"kcore/mutex"
	"kcore/pmm"
	"kcore/sched"
	"kcore/thread"
	"kcore/trap"
	"kcore/vfs"
	"kcore/vm"
)

var log = klog.Sub("boot")

func main() {
	configPath := flag.String("config", "", "path to a TOML boot config (defaults built in if empty)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "kernelsim:", err)
			os.Exit(1)
		}
		cfg, err = config.Load(data)
		if err != nil {
			fmt.Fprintln(os.Stderr, "kernelsim:", err)
			os.Exit(1)
		}
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		klog.SetLevel(level)
	}

	log.Infof("booting kernel-abi=%s page_size=%d", cfg.KernelABI, cfg.PageSize)

	physmem := bringUpMemory(cfg)
	mmu, as := bringUpAddressSpace(cfg, physmem)
	trapMgr := bringUpTraps()
	scheduler := bringUpScheduler(cfg)
	registry, _ := bringUpConsole()
	ldisks := bringUpDisk()
	bringUpVFS(ldisks)

	demonstratePageFault(as, mmu, trapMgr)
	demonstrateThreads(scheduler)

	log.Infof("devices registered: %d console stream(s)", len(registry.ListFor(iodevice.TypeConsole)))
	log.Info("boot sequence complete")
}

func bringUpMemory(cfg *config.BootConfig) *pmm.Physmem {
	physmem := pmm.New()
	if len(cfg.MemPools) == 0 {
		cfg.MemPools = []config.MemPool{{BasePhys: 0, PageCount: 256}}
	}
	for _, pool := range cfg.MemPools {
		if err := physmem.Register(arch.PhysAddr(pool.BasePhys), int(pool.PageCount)); err != nil {
			kpanic.Panic("pmm.Register(%#x, %d): %v", pool.BasePhys, pool.PageCount, err)
		}
		log.Infof("registered memory pool base=%#x pages=%d", pool.BasePhys, pool.PageCount)
	}
	return physmem
}

func bringUpAddressSpace(cfg *config.BootConfig, physmem *pmm.Physmem) (arch.MMU, *vm.AddressSpace) {
	backing, err := simmu.NewBackingStore(int(physmem.FreePageCount()) * arch.PageSize)
	if err != nil {
		kpanic.Panic("simmu.NewBackingStore: %v", err)
	}
	mmu := simmu.New(backing)
	as := vm.NewAddressSpace(mmu, physmem, uintptr(cfg.KernelVMStart), uintptr(cfg.KernelVMEnd), true)
	log.Infof("kernel address space [%#x, %#x)", cfg.KernelVMStart, cfg.KernelVMEnd)
	return mmu, as
}

const pageFaultVector = 14

func bringUpTraps() *trap.Manager {
	m := trap.New()
	m.Register(pageFaultVector, func(f *trap.Frame, data any) {
		log.Warnf("page fault vector=%d va=%#x write=%v user=%v", f.Vector, f.FaultVA, f.Write, f.FromUser)
	}, nil)
	log.Info("trap manager initialized")
	return m
}

func bringUpScheduler(cfg *config.BootConfig) *sched.Scheduler {
	oppTable := make(map[int]int, len(cfg.SchedulerBands))
	for _, b := range cfg.SchedulerBands {
		oppTable[b.Priority] = b.Opportunities
	}
	return sched.New(oppTable)
}

func bringUpConsole() (*iodevice.Registry, *stream.Stream) {
	registry := iodevice.New()
	ops := stream.NewConsoleOps(os.Stdout)
	s := stream.New(ops, nil, 256)
	registry.Register(iodevice.TypeConsole, s, nil)
	log.Info("console stream registered")

	profDev := prof.New()
	registry.Register(iodevice.TypeProf, profDev, nil)
	demonstrateProfiling(profDev)

	return registry, s
}

func demonstrateProfiling(d *prof.Device) {
	if err := d.Start(); err != status.OK {
		log.Warnf("prof: start failed: %v", err)
		return
	}
	p, err := d.Stop()
	if err != status.OK {
		log.Warnf("prof: stop failed: %v", err)
		return
	}
	log.Infof("prof device captured %d sample(s)", prof.SampleCount(p))
}

func bringUpDisk() []*disk.Ldisk {
	physical := newMemDisk(4096)
	ldisks, err := disk.Register(512, physical, nil)
	if err != status.OK {
		kpanic.Panic("disk.Register: %v", err)
	}
	log.Infof("discovered %d logical disk(s)", len(ldisks))
	return ldisks
}

func bringUpVFS(ldisks []*disk.Ldisk) *vfs.VFS {
	v := vfs.New()
	v.RegisterFSType(vfs.DummyFSType{})
	var ld *disk.Ldisk
	if len(ldisks) > 0 {
		ld = ldisks[0]
	}
	if err := v.Mount("dummyfs", ld, "/"); err != status.OK {
		kpanic.Panic("vfs.Mount: %v", err)
	}
	log.Info("mounted dummyfs at /")
	return v
}

func demonstratePageFault(as *vm.AddressSpace, mmu arch.MMU, trapMgr *trap.Manager) {
	obj, err := as.Alloc(4*arch.PageSize, arch.FlagWrite)
	if err != status.OK {
		kpanic.Panic("vm.Alloc: %v", err)
	}
	log.Infof("allocated lazy vmobject base=%#x pages=%d", obj.Base, obj.Pages)

	if err := vm.OnPageFault(as, obj.Base, false, true, false); err != status.OK {
		kpanic.Panic("OnPageFault: %v", err)
	}
	if phys, ok := mmu.VirtToPhys(obj.Base); ok {
		log.Infof("resolved first write fault, va=%#x now backed by phys=%#x", obj.Base, phys)
	}

	prev := arch.InterruptsDisable()
	trapMgr.Trap(pageFaultVector, &trap.Frame{Vector: pageFaultVector, FaultVA: obj.Base, Write: true})
	arch.InterruptsRestore(prev)
}

func demonstrateThreads(s *sched.Scheduler) {
	var m mutex.Mutex
	done := make(chan struct{})

	worker := thread.New("worker", 5, func() {
		m.Lock()
		log.Info("worker holds the mutex")
		m.Unlock()
		close(done)
	})
	s.Queue(worker)

	prev := arch.InterruptsDisable()
	s.Bootstrap()
	arch.InterruptsRestore(prev)

	<-done
	log.Info("worker thread completed")
}
