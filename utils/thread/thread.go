// Package thread keeps the window loop on one OS thread, as highgui
// requires.
package thread

/*
   #define _GNU_SOURCE
   #include <sched.h>
   #include <pthread.h>

   int set_cpu_affinity(int core_id) {
       cpu_set_t cpuset;
       CPU_ZERO(&cpuset);
       CPU_SET(core_id, &cpuset);
       return pthread_setaffinity_np(pthread_self(), sizeof(cpu_set_t), &cpuset);
   }
*/
import "C"

import (
	"runtime"

	"github.com/pkg/errors"
)

// Lock wires the calling goroutine to its OS thread. When core is not nil
// the thread is also pinned to that CPU.
func Lock(core *int) error {
	runtime.LockOSThread()
	if core == nil {
		return nil
	}
	return SetCPUAffinity(*core)
}

func SetCPUAffinity(coreID int) error {
	if rc := C.set_cpu_affinity(C.int(coreID)); rc != 0 {
		return errors.Errorf("pthread_setaffinity_np(%d) failed with %d", coreID, int(rc))
	}
	return nil
}
