// Package bus is the control channel between the CLI and a running capture
// daemon: a unix socket carrying one-byte commands and a PID file.
package bus

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const (
	SockName = "control.sock"
	PidName  = "voxchunk.pid"
	ProtoVer = "0.1"
)

// Commands understood by the daemon.
const (
	CmdToggle  byte = 't'
	CmdStatus  byte = 's'
	CmdVersion byte = 'v'
	CmdQuit    byte = 'q'
)

var ErrDaemonRunning = errors.New("daemon already running")

// ~/.cache/voxchunk
func stateDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "voxchunk"), nil
}

func getSockPath() (string, error) {
	dir, err := stateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SockName), nil
}

func getPidPath() (string, error) {
	dir, err := stateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, PidName), nil
}

// ~/.cache/voxchunk/control.sock
func SockPath() (string, error) { return getSockPath() }

// ~/.cache/voxchunk/voxchunk.pid
func PidPath() (string, error) { return getPidPath() }

type socketManager struct {
	path string
}

func (s *socketManager) listen() (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return nil, err
	}
	_ = os.Remove(s.path) // stale socket from last run
	return net.Listen("unix", s.path)
}

func (s *socketManager) dial() (net.Conn, error) {
	return net.DialTimeout("unix", s.path, 2*time.Second)
}

func (s *socketManager) send(cmd byte) (string, error) {
	c, err := s.dial()
	if err != nil {
		return "", err
	}
	defer c.Close()
	_ = c.SetDeadline(time.Now().Add(10 * time.Second))

	if _, err := c.Write([]byte{cmd, '\n'}); err != nil {
		return "", err
	}
	return bufio.NewReader(c).ReadString('\n')
}

type pidManager struct {
	path string
}

func (p *pidManager) create() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(p.path, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func (p *pidManager) remove() error {
	return os.Remove(p.path)
}

// checkExisting fails if the PID file names a live process. Stale or
// unreadable PID files are removed.
func (p *pidManager) checkExisting() error {
	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || !p.isProcessAlive(pid) {
		_ = os.Remove(p.path)
		return nil
	}

	return fmt.Errorf("%w with PID %d", ErrDaemonRunning, pid)
}

func (p *pidManager) isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func defaultSocket() (*socketManager, error) {
	sp, err := getSockPath()
	if err != nil {
		return nil, err
	}
	return &socketManager{path: sp}, nil
}

func defaultPid() (*pidManager, error) {
	pp, err := getPidPath()
	if err != nil {
		return nil, err
	}
	return &pidManager{path: pp}, nil
}

func Listen() (net.Listener, error) {
	s, err := defaultSocket()
	if err != nil {
		return nil, err
	}
	return s.listen()
}

func Dial() (net.Conn, error) {
	s, err := defaultSocket()
	if err != nil {
		return nil, err
	}
	return s.dial()
}

// SendCommand sends cmd to the daemon and returns its one-line reply,
// newline included.
func SendCommand(cmd byte) (string, error) {
	s, err := defaultSocket()
	if err != nil {
		return "", err
	}
	return s.send(cmd)
}

func CheckExistingDaemon() error {
	p, err := defaultPid()
	if err != nil {
		return err
	}
	return p.checkExisting()
}

func CreatePidFile() error {
	p, err := defaultPid()
	if err != nil {
		return err
	}
	return p.create()
}

func RemovePidFile() error {
	p, err := defaultPid()
	if err != nil {
		return err
	}
	return p.remove()
}
