package server

import (
	"fmt"
	"net"
	"os"
	"syscall"
)

// SendFDs writes a single byte over conn accompanied by ancillary data
// carrying fds, the out-of-band mechanism clients use to hand their
// stdin/stdout/stderr to the server before sending the JSON request frame.
func SendFDs(conn *net.UnixConn, fds []int) error {
	rights := syscall.UnixRights(fds...)
	_, _, err := conn.WriteMsgUnix([]byte{0}, rights, nil)
	if err != nil {
		return fmt.Errorf("server: send fds: %w", err)
	}
	return nil
}

// RecvFDs blocks reading one ancillary-data message from conn and returns
// the file descriptors it carried, duplicated into *os.File handles the
// caller owns.
func RecvFDs(conn *net.UnixConn, count int) ([]*os.File, error) {
	buf := make([]byte, 1)
	oob := make([]byte, syscall.CmsgSpace(count*4))

	_, oobn, _, _, err := conn.ReadMsgUnix(buf, oob)
	if err != nil {
		return nil, fmt.Errorf("server: recv fds: %w", err)
	}

	cmsgs, err := syscall.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return nil, fmt.Errorf("server: parse control message: %w", err)
	}
	if len(cmsgs) == 0 {
		return nil, fmt.Errorf("server: no control message received")
	}

	fds, err := syscall.ParseUnixRights(&cmsgs[0])
	if err != nil {
		return nil, fmt.Errorf("server: parse unix rights: %w", err)
	}
	if len(fds) != count {
		return nil, fmt.Errorf("server: expected %d fds, got %d", count, len(fds))
	}

	files := make([]*os.File, len(fds))
	for i, fd := range fds {
		files[i] = os.NewFile(uintptr(fd), fmt.Sprintf("passed-fd-%d", i))
	}
	return files, nil
}

// DupOver duplicates src over the well-known fd dst (0, 1, or 2), returning
// a saved copy of dst's original descriptor so the caller can restore it.
func DupOver(src *os.File, dst int) (saved *os.File, err error) {
	savedFD, err := syscall.Dup(dst)
	if err != nil {
		return nil, fmt.Errorf("server: save fd %d: %w", dst, err)
	}
	saved = os.NewFile(uintptr(savedFD), fmt.Sprintf("saved-fd-%d", dst))

	if err := syscall.Dup2(int(src.Fd()), dst); err != nil {
		saved.Close()
		return nil, fmt.Errorf("server: dup2 onto fd %d: %w", dst, err)
	}
	return saved, nil
}

// RestoreFD dups saved back over dst and closes saved.
func RestoreFD(saved *os.File, dst int) error {
	defer saved.Close()
	if err := syscall.Dup2(int(saved.Fd()), dst); err != nil {
		return fmt.Errorf("server: restore fd %d: %w", dst, err)
	}
	return nil
}
