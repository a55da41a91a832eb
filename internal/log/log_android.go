// SPDX-License-Identifier: Unlicense OR MIT

package log

/*
#cgo LDFLAGS: -llog

#include <stdlib.h>
#include <android/log.h>
*/
import "C"

import (
	"bufio"
	"os"
	"runtime"
	"unsafe"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

func init() {
	redirect(os.Stdout.Fd(), C.ANDROID_LOG_INFO)
	redirect(os.Stderr.Fd(), C.ANDROID_LOG_WARN)
}

func formatter() logrus.Formatter {
	// logcat adds its own timestamps.
	return &logrus.TextFormatter{DisableTimestamp: true, DisableColors: true}
}

// redirect replaces fd with a pipe whose lines are written to logcat at
// priority prio.
func redirect(fd uintptr, prio C.int) {
	r, w, err := os.Pipe()
	if err != nil {
		panic(err)
	}
	if err := unix.Dup3(int(w.Fd()), int(fd), unix.O_CLOEXEC); err != nil {
		panic(err)
	}
	go func() {
		tag := C.CString("glthread")
		defer C.free(unsafe.Pointer(tag))
		// 1024 is the truncation limit from android/log.h, plus a \n.
		lines := bufio.NewReaderSize(r, 1024)
		buf := make([]byte, lines.Size()+1)
		cbuf := (*C.char)(unsafe.Pointer(&buf[0]))
		for {
			line, _, err := lines.ReadLine()
			if err != nil {
				break
			}
			copy(buf, line)
			buf[len(line)] = 0
			C.__android_log_write(prio, tag, cbuf)
		}
		// w's fd was dup'ed; keep its finalizer from closing it.
		runtime.KeepAlive(w)
	}()
}
