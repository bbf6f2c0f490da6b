// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the level-triggered epoll event loop that each worker
// thread polls, plus an eventfd Waker for cross-thread wakeups. Linux only;
// other platforms get constructors that fail with api.ErrNotSupported.
package reactor
