package platform

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net"
	"strings"
	"sync"
	"time"
)

// ErrAlreadyRunning indicates another instance already holds the lock.
var ErrAlreadyRunning = errors.New("instance already running")

const activateMessage = "activate"

// InstanceGuard holds the single-instance lock. A later launch pokes the
// holder so it can bring its window back to the front.
type InstanceGuard struct {
	listener net.Listener
	address  string

	closeOnce sync.Once
	done      chan struct{}
}

// AcquireSingleInstance attempts to bind a deterministic localhost port. When
// the port is taken it asks the running instance to activate and returns
// ErrAlreadyRunning.
func AcquireSingleInstance(appName string) (*InstanceGuard, error) {
	port := portFromName(appName)
	address := fmt.Sprintf("127.0.0.1:%d", port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		notifyRunning(address)
		return nil, ErrAlreadyRunning
	}
	return &InstanceGuard{listener: listener, address: address, done: make(chan struct{})}, nil
}

// Serve calls onActivate for every later launch until ctx is done or the
// guard is released.
func (guard *InstanceGuard) Serve(ctx context.Context, onActivate func()) error {
	if guard == nil || guard.listener == nil {
		return nil
	}
	go func() {
		select {
		case <-ctx.Done():
			_ = guard.Release()
		case <-guard.done:
		}
	}()

	for {
		conn, err := guard.listener.Accept()
		if err != nil {
			select {
			case <-guard.done:
				return nil
			default:
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("single instance accept: %w", err)
		}
		go handleActivation(conn, onActivate)
	}
}

// Release frees the single instance lock.
func (guard *InstanceGuard) Release() error {
	if guard == nil || guard.listener == nil {
		return nil
	}
	var err error
	guard.closeOnce.Do(func() {
		close(guard.done)
		err = guard.listener.Close()
	})
	return err
}

// Address returns the bound address.
func (guard *InstanceGuard) Address() string {
	if guard == nil {
		return ""
	}
	return guard.address
}

func handleActivation(conn net.Conn, onActivate func()) {
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return
	}
	if strings.TrimSpace(line) == activateMessage && onActivate != nil {
		onActivate()
	}
}

func notifyRunning(address string) {
	conn, err := net.DialTimeout("tcp", address, 500*time.Millisecond)
	if err != nil {
		return
	}
	defer conn.Close()
	_, _ = conn.Write([]byte(activateMessage + "\n"))
}

func portFromName(appName string) int {
	const (
		minPort = 20000
		maxPort = 39999
	)
	hash := fnv.New32a()
	_, _ = hash.Write([]byte(appName))
	rangeSize := maxPort - minPort + 1
	return minPort + int(hash.Sum32()%uint32(rangeSize))
}
