// SPDX-License-Identifier: Unlicense OR MIT

//go:build linux || freebsd || openbsd

package gl

/*
#cgo CFLAGS: -Werror
#cgo linux freebsd openbsd LDFLAGS: -lGLESv2
#cgo freebsd CFLAGS: -I/usr/local/include
#cgo freebsd LDFLAGS: -L/usr/local/lib
#cgo openbsd CFLAGS: -I/usr/X11R6/include
#cgo openbsd LDFLAGS: -L/usr/X11R6/lib

#include <GLES2/gl2.h>
*/
import "C"

import "unsafe"

func (f *Functions) Clear(mask Enum) {
	C.glClear(C.GLbitfield(mask))
}

func (f *Functions) ClearColor(red, green, blue, alpha float32) {
	C.glClearColor(C.GLfloat(red), C.GLfloat(green), C.GLfloat(blue), C.GLfloat(alpha))
}

func (f *Functions) Finish() {
	C.glFinish()
}

func (f *Functions) GetString(pname Enum) string {
	s := C.glGetString(C.GLenum(pname))
	if s == nil {
		return ""
	}
	return C.GoString((*C.char)(unsafe.Pointer(s)))
}

func (f *Functions) Viewport(x, y, width, height int) {
	C.glViewport(C.GLint(x), C.GLint(y), C.GLsizei(width), C.GLsizei(height))
}
