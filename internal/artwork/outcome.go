package artwork

// Outcome is the single result reported for one top-level processing call.
type Outcome string

const (
	OutcomeOK                  Outcome = "ok"
	OutcomeSkipDuplicate       Outcome = "skip_duplicate"
	OutcomeSkipDuplicateNoWait Outcome = "skip_duplicate_no_wait"
	OutcomeSkipBlacklist       Outcome = "skip_blacklist"
	OutcomeSkipOlder           Outcome = "skip_older"
	OutcomeSkipLocalLarger     Outcome = "skip_local_larger"
	OutcomeCheckDownload       Outcome = "check_download"
	OutcomeNotOK               Outcome = "not_ok"
	OutcomeKeyboardInterrupt   Outcome = "keyboard_interrupt"
)

// Completed reports whether the outcome leaves the work fully present on disk.
func (o Outcome) Completed() bool {
	switch o {
	case OutcomeOK, OutcomeSkipDuplicate, OutcomeSkipLocalLarger:
		return true
	default:
		return false
	}
}

// Skip reports whether the outcome means the work was not downloaded by policy.
func (o Outcome) Skip() bool {
	switch o {
	case OutcomeSkipDuplicate, OutcomeSkipDuplicateNoWait, OutcomeSkipBlacklist, OutcomeSkipOlder, OutcomeSkipLocalLarger:
		return true
	default:
		return false
	}
}

// NoWait reports whether the caller may proceed to the next work without throttling.
func (o Outcome) NoWait() bool {
	switch o {
	case OutcomeSkipDuplicateNoWait, OutcomeSkipBlacklist, OutcomeSkipOlder, OutcomeNotOK:
		return true
	default:
		return false
	}
}

func (o Outcome) String() string { return string(o) }

// MangaFile records one downloaded page of a work.
type MangaFile struct {
	WorkID   string
	Page     int
	Filename string
}
