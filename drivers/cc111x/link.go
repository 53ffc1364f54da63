package cc111x

import "ccdump-go/platform"

// Link is the debug line set: Debug Clock (always host-driven), Debug Data
// (bidirectional) and RESET_N (active low). It carries the data-line
// direction explicitly; nothing else may reconfigure these pins while a
// session owns them.
type Link struct {
	DC    platform.Pin
	DD    platform.Pin
	Reset platform.Pin

	ddOut bool
}

// NewLink configures the lines into their idle state: DC low, DD driven high,
// RESET_N released (high).
func NewLink(dc, dd, reset platform.Pin) (*Link, error) {
	if err := dc.ConfigureOutput(false); err != nil {
		return nil, err
	}
	if err := dd.ConfigureOutput(true); err != nil {
		return nil, err
	}
	if err := reset.ConfigureOutput(true); err != nil {
		return nil, err
	}
	return &Link{DC: dc, DD: dd, Reset: reset, ddOut: true}, nil
}

// DataIsOutput reports the current DD direction.
func (l *Link) DataIsOutput() bool { return l.ddOut }

func (l *Link) driveData() {
	if !l.ddOut {
		_ = l.DD.ConfigureOutput(true)
		l.ddOut = true
	}
}

// releaseData hands DD to the target. No host pull: the target carries its
// own pull-up.
func (l *Link) releaseData() {
	if l.ddOut {
		_ = l.DD.ConfigureInput(platform.PullNone)
		l.ddOut = false
	}
}
