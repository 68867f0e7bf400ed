package service

// DebounceConfig sets the per-channel suppression policy. Both values are
// counted in observed (sampled and processed) frames.
type DebounceConfig struct {
	// CooldownFrames is how many consecutive empty observations end an
	// occurrence. Values below 1 are treated as 1.
	CooldownFrames int
	// ResetEvery forces the channel back to idle after this many
	// observations. 0 disables the periodic reset.
	ResetEvery int
}

// Debouncer turns a channel's per-frame best value into distinct
// occurrences. It is idle when active is false; otherwise it is cooling on
// value with remaining empty frames left.
//
// A Debouncer is not safe for concurrent use; the engine gives each channel
// exactly one and never runs two observations of a channel at once.
type Debouncer struct {
	cfg       DebounceConfig
	active    bool
	value     string
	remaining int
	observed  int
}

func NewDebouncer(cfg DebounceConfig) *Debouncer {
	if cfg.CooldownFrames < 1 {
		cfg.CooldownFrames = 1
	}
	if cfg.ResetEvery < 0 {
		cfg.ResetEvery = 0
	}
	return &Debouncer{cfg: cfg}
}

// Observe advances the machine by one frame. value is the frame's best
// eligible candidate, or "" for none. It reports the value of a new
// occurrence when one starts.
//
// Continued sightings of the cooling value neither emit nor extend the
// cooldown; only empty frames count it down.
func (d *Debouncer) Observe(value string) (string, bool) {
	var (
		out   string
		fired bool
	)
	switch {
	case value == "":
		if d.active {
			d.remaining--
			if d.remaining <= 0 {
				d.idle()
			}
		}
	case !d.active || value != d.value:
		d.active, d.value, d.remaining = true, value, d.cfg.CooldownFrames
		out, fired = value, true
	}

	d.observed++
	if d.cfg.ResetEvery > 0 && d.observed >= d.cfg.ResetEvery {
		d.observed = 0
		d.idle()
	}
	return out, fired
}

// Reset returns the channel to idle and restarts the reset cadence.
func (d *Debouncer) Reset() {
	d.idle()
	d.observed = 0
}

// State returns the cooling value and frames remaining; ok is false when idle.
func (d *Debouncer) State() (value string, remaining int, ok bool) {
	return d.value, d.remaining, d.active
}

func (d *Debouncer) idle() {
	d.active, d.value, d.remaining = false, "", 0
}
