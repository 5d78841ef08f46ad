package scanner

import (
	"sync"
	"time"

	"github.com/herlein/isdbtune/pkg/tc90522"
)

// LockInfo describes a lock followed by a LockTracker
type LockInfo struct {
	Device    string
	TSID      uint16
	CNR       float64 // smoothed, dB
	MaxCNR    float64 // dB
	FirstSeen time.Time
	LastSeen  time.Time
	Reports   uint32 // locked reports seen
}

// LockTracker follows the lock of a monitored front end with hysteresis:
// a lock is reported lost only after it has been missing from several
// consecutive reports
type LockTracker struct {
	mu          sync.Mutex
	holdCounter int
	holdMax     int
	lostAt      int
	smoother    *Smoother
	active      *LockInfo
	expecting   bool

	onLocked func(LockInfo)
	onLost   func(LockInfo)
}

// NewLockTracker creates a tracker holding a lock for holdMax reports and
// reporting it lost when the hold counter reaches lostAt
func NewLockTracker(holdMax, lostAt int) *LockTracker {
	return &LockTracker{holdMax: holdMax, lostAt: lostAt, smoother: NewSmoother()}
}

// SetCallbacks sets the lock callbacks. They run synchronously from Update.
func (t *LockTracker) SetCallbacks(onLocked, onLost func(LockInfo)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onLocked = onLocked
	t.onLost = onLost
}

// Expect opens a window of holdMax reports in which a lock is expected,
// typically right after a tune. If no lock shows up, onLost fires when the
// hold counter reaches lostAt, as it would for a lock that was held.
func (t *LockTracker) Expect() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil {
		t.expecting = true
		t.holdCounter = t.holdMax
	}
}

// Update processes one status report
func (t *LockTracker) Update(r tc90522.Report) {
	t.mu.Lock()
	var fire func(LockInfo)
	var info LockInfo

	if r.Status.Lock {
		t.expecting = false
		t.holdCounter = t.holdMax
		db := t.smoother.Update(r.DB())
		if t.active == nil || t.active.TSID != r.Status.TSID {
			t.active = &LockInfo{Device: r.Device, TSID: r.Status.TSID, FirstSeen: r.Time, MaxCNR: r.DB()}
			fire = t.onLocked
		}
		t.active.CNR = db
		t.active.LastSeen = r.Time
		t.active.Reports++
		if r.DB() > t.active.MaxCNR {
			t.active.MaxCNR = r.DB()
		}
		info = *t.active
	} else if t.holdCounter > 0 {
		t.holdCounter--
		if t.holdCounter == t.lostAt {
			switch {
			case t.active != nil:
				fire = t.onLost
				info = *t.active
			case t.expecting:
				fire = t.onLost
				info = LockInfo{Device: r.Device, LastSeen: r.Time}
			}
		}
		if t.holdCounter == 0 {
			t.active = nil
			t.expecting = false
			t.smoother.Reset()
		}
	}
	t.mu.Unlock()

	if fire != nil {
		fire(info)
	}
}

// Active returns the current lock, if any
func (t *LockTracker) Active() (LockInfo, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil {
		return LockInfo{}, false
	}
	return *t.active, true
}

// HoldCounter returns the current hold counter value
func (t *LockTracker) HoldCounter() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.holdCounter
}
