// Command kcoresim is a small demonstration harness wiring sched, ksync,
// and bio together, exercising the kernel core end to end the way the
// original kernel's thread_tests() entry point exercises its test suite.
// It is a demo, not a product surface, and stays intentionally small.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joeycumines/logiface"

	"github.com/joeycumines/go-mcukernel/bio"
	"github.com/joeycumines/go-mcukernel/kerrors"
	"github.com/joeycumines/go-mcukernel/klog"
	"github.com/joeycumines/go-mcukernel/ksync"
	"github.com/joeycumines/go-mcukernel/sched"
)

func main() {
	klog.SetLogger(klog.New(logiface.LevelInformational))

	s := sched.New(nil, nil)
	defer s.Stop()

	runCounterDemo(s)
	runBioDemo(s)

	klog.L().Info().Log("kcoresim finished")
}

// runCounterDemo spawns threads at different priorities sharing a
// mutex-guarded counter, demonstrating exclusive access and priority
// dispatch (spec §4.1, §4.3 Mutex).
func runCounterDemo(s *sched.Scheduler) {
	m := ksync.NewMutex(s)
	counter := 0

	prios := []sched.Priority{sched.PriorityLow, sched.PriorityDefault, sched.PriorityHigh}
	threads := make([]*sched.Thread, len(prios))
	for i, prio := range prios {
		name := fmt.Sprintf("counter-%d", i)
		th, err := s.Create(name, func(arg any) any {
			for j := 0; j < 100; j++ {
				if err := m.Acquire(); err != nil {
					kerrors.Fatalf("kcoresim: counter thread acquire failed: %v", err)
				}
				counter++
				m.Release()
				s.Yield()
			}
			return nil
		}, nil, prio, 0)
		if err != nil {
			kerrors.Fatalf("kcoresim: create thread: %v", err)
		}
		s.Resume(th)
		threads[i] = th
	}
	for _, th := range threads {
		if _, err := s.Join(th, sched.Infinite); err != nil {
			kerrors.Fatalf("kcoresim: join: %v", err)
		}
	}
	klog.L().Info().Int("counter", counter).Log("counter demo done")
}

// runBioDemo builds a membdev with two nested sub-devices and performs an
// asynchronous write through the innermost one (spec §4.4).
func runBioDemo(s *sched.Scheduler) {
	reg := bio.NewRegistry(nil)
	const blockSize = 512
	backing := make([]byte, 64*blockSize)
	if err := reg.Register(bio.CreateMemDevice("disk0", backing, blockSize, 0xFF)); err != nil {
		kerrors.Fatalf("kcoresim: register disk0: %v", err)
	}
	if err := reg.PublishSubdevice("disk0", "disk0p1", 0, 32); err != nil {
		kerrors.Fatalf("kcoresim: publish disk0p1: %v", err)
	}
	if err := reg.PublishSubdevice("disk0p1", "disk0p1a", 0, 8); err != nil {
		kerrors.Fatalf("kcoresim: publish disk0p1a: %v", err)
	}

	h, err := reg.Open("disk0p1a")
	if err != nil {
		kerrors.Fatalf("kcoresim: open disk0p1a: %v", err)
	}
	defer reg.Close(h)

	payload := make([]byte, blockSize)
	for i := range payload {
		payload[i] = byte(i)
	}

	sem := ksync.NewSem(s, 0)
	var writeErr error
	if err := reg.WriteAsync(h, payload, 0, blockSize, func(cookie any, dev bio.Device, status error) {
		writeErr = status
		_ = sem.Post(true)
	}, nil); err != nil {
		kerrors.Fatalf("kcoresim: write async: %v", err)
	}

	waiter, err := s.Create("bio-waiter", func(arg any) any {
		if err := sem.Wait(); err != nil {
			return err
		}
		return nil
	}, nil, sched.PriorityDefault, 0)
	if err != nil {
		kerrors.Fatalf("kcoresim: create bio waiter: %v", err)
	}
	s.Resume(waiter)
	if _, err := s.Join(waiter, 5*time.Second); err != nil {
		kerrors.Fatalf("kcoresim: bio waiter join: %v", err)
	}
	if writeErr != nil {
		kerrors.Fatalf("kcoresim: async write failed: %v", writeErr)
	}

	klog.L().Info().Log("bio demo done")
	fmt.Fprintln(os.Stdout, "kcoresim: demo completed successfully")
}
