// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"errors"

	"github.com/ik5/mixrec/audio"
	"github.com/ik5/mixrec/host"
)

// ErrDriverRefused is the default error of FailingDriver.
var ErrDriverRefused = errors.New("driver refused configuration")

// FailingDriver is a host.Driver that fails to open or start.
type FailingDriver struct {
	OpenErr  error
	StartErr error
	Closed   bool
}

func (d *FailingDriver) Open(audio.Format, bool, host.Callback) error {
	return d.OpenErr
}

func (d *FailingDriver) Start() error {
	return d.StartErr
}

func (d *FailingDriver) Stop() error {
	return nil
}

func (d *FailingDriver) Close() error {
	d.Closed = true
	return nil
}
