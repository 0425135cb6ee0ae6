//go:build !unix

package procman

import "errors"

var errUnsupported = errors.New("demo processes are only supported on unix hosts")

type ExecLauncher struct{}

func (ExecLauncher) Start(string, []string, []string) (int, error) { return 0, errUnsupported }
func (ExecLauncher) Alive(int) bool                                { return false }
func (ExecLauncher) Terminate(int) error                           { return ErrProcessGone }
func (ExecLauncher) Kill(int) error                                { return ErrProcessGone }
