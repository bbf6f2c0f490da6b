//go:build !unix

package socket

import "syscall"

func reuseAddr(_, _ string, _ syscall.RawConn) error { return nil }
