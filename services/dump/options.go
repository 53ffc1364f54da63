package dump

// Option configures a Session.
type Option func(*Session)

// WithLogger routes session logs to l.
func WithLogger(l Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithProgressCallback reports phase changes and per-block progress.
func WithProgressCallback(cb ProgressCallback) Option {
	return func(s *Session) { s.progress = cb }
}

// WithRelease overrides whether the chip is reset into its application
// when the session ends.
func WithRelease(release bool) Option {
	return func(s *Session) { s.release = release }
}

// WithChipName sets the part name written into the HEX header.
func WithChipName(name string) Option {
	return func(s *Session) { s.chip = name }
}
