package iocli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Stream implements IO on top of an input and an output stream
type Stream struct {
	in  *bufio.Reader
	out io.Writer
	// fd терминала для ввода пароля без эха, -1 если ввод не терминал
	fd int
}

var _ IO = (*Stream)(nil)

// NewStdio returns IO bound to the process stdin and stdout
func NewStdio() IO {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		fd = -1
	}
	return &Stream{in: bufio.NewReader(os.Stdin), out: os.Stdout, fd: fd}
}

// NewStream returns IO reading lines from in and writing to out.
// Passwords are read as plain lines.
func NewStream(in io.Reader, out io.Writer) *Stream {
	return &Stream{in: bufio.NewReader(in), out: out, fd: -1}
}

func (s *Stream) Println(a ...any) {
	_, _ = fmt.Fprintln(s.out, a...)
}

func (s *Stream) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(s.out, format, a...)
}

func (s *Stream) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

func (s *Stream) ReadInput(prompt string) (string, error) {
	s.Printf("%s", prompt)
	return s.readLine()
}

func (s *Stream) ReadPassword(prompt string) (string, error) {
	s.Printf("%s", prompt)
	if s.fd < 0 {
		return s.readLine()
	}

	pwBytes, err := term.ReadPassword(s.fd)
	s.Println("")
	if err != nil {
		return "", err
	}
	return string(pwBytes), nil
}

func (s *Stream) readLine() (string, error) {
	line, err := s.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
