package platform

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

type idleProvider struct {
	ioregPath string
}

type unsupportedIdleProvider struct{}

func newIdleProvider() IdleProvider {
	path, err := exec.LookPath("ioreg")
	if err != nil {
		return unsupportedIdleProvider{}
	}
	return &idleProvider{ioregPath: path}
}

// IdleDuration reads HIDIdleTime (nanoseconds) from the IOHIDSystem registry entry.
func (provider *idleProvider) IdleDuration() (time.Duration, error) {
	output, err := exec.Command(provider.ioregPath, "-c", "IOHIDSystem", "-d", "4").Output()
	if err != nil {
		return 0, fmt.Errorf("ioreg: %w", err)
	}
	return parseHIDIdleTime(output)
}

func (unsupportedIdleProvider) IdleDuration() (time.Duration, error) {
	return 0, ErrIdleUnsupported
}

func parseHIDIdleTime(output []byte) (time.Duration, error) {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, `"HIDIdleTime"`) {
			continue
		}
		_, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		nanos, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse HIDIdleTime: %w", err)
		}
		if nanos < 0 {
			nanos = 0
		}
		return time.Duration(nanos), nil
	}
	return 0, ErrIdleUnsupported
}
