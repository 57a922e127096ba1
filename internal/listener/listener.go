// Package listener resolves the server's listening socket, honoring systemd
// socket activation when present.
package listener

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
)

// Fd 3 is the first file descriptor systemd passes along with LISTEN_FDS.
const listenFdsStart = 3

// Listen returns a listener for addr, unless systemd passed a socket for this
// process, in which case that socket is adopted. The shim serves exactly one
// socket; extra activated fds are rejected as a unit misconfiguration.
func Listen(addr string) (net.Listener, error) {
	if ln, ok, err := activated(); err != nil {
		return nil, err
	} else if ok {
		slog.Info("using systemd-passed socket")
		return ln, nil
	}
	return net.Listen("tcp", addr)
}

func activated() (net.Listener, bool, error) {
	pid := os.Getenv("LISTEN_PID")
	if pid == "" || pid != strconv.Itoa(os.Getpid()) {
		return nil, false, nil
	}

	nfds, err := strconv.Atoi(os.Getenv("LISTEN_FDS"))
	if err != nil || nfds == 0 {
		return nil, false, nil
	}
	if nfds > 1 {
		return nil, false, fmt.Errorf("expected one activated socket, got %d", nfds)
	}

	file := os.NewFile(uintptr(listenFdsStart), "LISTEN_FD_3")
	defer file.Close()

	ln, err := net.FileListener(file)
	if err != nil {
		return nil, false, fmt.Errorf("adopt activated socket: %w", err)
	}
	return ln, true, nil
}
