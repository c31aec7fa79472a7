package auth

import (
	"sync/atomic"
	"time"
)

// Modality is a biometric input kind.
type Modality string

const (
	ModalityFingerprint Modality = "fingerprint"
	ModalityFace        Modality = "face"
)

// ValidModality reports whether m is a known modality.
func ValidModality(m Modality) bool {
	return m == ModalityFingerprint || m == ModalityFace
}

// Phase is the biometric scan sub-state.
type Phase string

const (
	PhaseIdle      Phase = "Idle"
	PhaseScanning  Phase = "Scanning"
	PhaseVerified  Phase = "Verified"
	PhaseCancelled Phase = "Cancelled"
)

// ScanState is an observable snapshot of the scan machine.
type ScanState struct {
	Modality  Modality  `json:"modality"`
	Phase     Phase     `json:"phase"`
	StartedAt time.Time `json:"started_at"`
}

// Default phase delays. The scan is a fixed-delay simulation, not a sensor
// call: scanDelay is the scanning phase, settleDelay the verified-to-login
// settle.
const (
	DefaultScanDelay   = 2 * time.Second
	DefaultSettleDelay = 1 * time.Second
)

// Scanner is the simulated biometric scan state machine:
//
//	Idle --Request--> Scanning --scanDelay--> Verified --settleDelay--> Idle (+ verified callback)
//
// Cancel during Scanning aborts fully, with no partial credit. A Request
// while Scanning restarts the timer with the new modality (last-writer-wins,
// not queued); only one scan is ever in flight.
//
// Concurrency model: a single loop goroutine owns the state; public methods
// communicate through channels.
type Scanner struct {
	scanDelay   time.Duration
	settleDelay time.Duration
	onVerified  func(Modality)
	onPhase     func(ScanState)

	requestCh  chan Modality
	cancelCh   chan struct{}
	stateReqCh chan chan ScanState

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithScanDelays overrides the two phase delays (tests use milliseconds).
func WithScanDelays(scan, settle time.Duration) ScannerOption {
	return func(s *Scanner) {
		s.scanDelay = scan
		s.settleDelay = settle
	}
}

// WithPhaseFunc registers a callback fired on every phase change.
func WithPhaseFunc(fn func(ScanState)) ScannerOption {
	return func(s *Scanner) { s.onPhase = fn }
}

// NewScanner creates a scanner. onVerified fires after both phases complete;
// it runs on the scanner loop.
func NewScanner(onVerified func(Modality), opts ...ScannerOption) *Scanner {
	s := &Scanner{
		scanDelay:   DefaultScanDelay,
		settleDelay: DefaultSettleDelay,
		onVerified:  onVerified,
		requestCh:   make(chan Modality),
		cancelCh:    make(chan struct{}),
		stateReqCh:  make(chan chan ScanState),
		stopCh:      make(chan struct{}),
		stopped:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.run()
	return s
}

func (s *Scanner) run() {
	defer close(s.stopped)

	state := ScanState{Phase: PhaseIdle}
	var timer *time.Timer
	var timerCh <-chan time.Time

	arm := func(d time.Duration) {
		if timer == nil {
			timer = time.NewTimer(d)
			timerCh = timer.C
		} else {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(d)
		}
	}
	disarm := func() {
		if timer != nil && !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
	}
	emit := func() {
		if s.onPhase != nil {
			s.onPhase(state)
		}
	}

	for {
		select {
		case <-s.stopCh:
			disarm()
			return

		case m := <-s.requestCh:
			if state.Phase == PhaseVerified {
				// Scan already confirmed; the settle finishes regardless.
				continue
			}
			state = ScanState{Modality: m, Phase: PhaseScanning, StartedAt: time.Now()}
			arm(s.scanDelay)
			emit()

		case <-s.cancelCh:
			if state.Phase != PhaseScanning {
				continue
			}
			disarm()
			state.Phase = PhaseCancelled
			emit()
			state = ScanState{Phase: PhaseIdle}
			emit()

		case resp := <-s.stateReqCh:
			resp <- state

		case <-timerCh:
			switch state.Phase {
			case PhaseScanning:
				state.Phase = PhaseVerified
				arm(s.settleDelay)
				emit()
			case PhaseVerified:
				m := state.Modality
				state = ScanState{Phase: PhaseIdle}
				emit()
				if s.onVerified != nil {
					s.onVerified(m)
				}
			}
		}
	}
}

// Request starts (or restarts) a scan with the given modality.
func (s *Scanner) Request(m Modality) {
	if s.closed.Load() {
		return
	}
	select {
	case s.requestCh <- m:
	case <-s.stopped:
	}
}

// Cancel aborts an in-flight scanning phase. No login occurs; any pending
// timer is suppressed. Outside the scanning phase it is a no-op.
func (s *Scanner) Cancel() {
	if s.closed.Load() {
		return
	}
	select {
	case s.cancelCh <- struct{}{}:
	case <-s.stopped:
	}
}

// State returns the current scan state.
func (s *Scanner) State() ScanState {
	if s.closed.Load() {
		return ScanState{Phase: PhaseIdle}
	}
	resp := make(chan ScanState, 1)
	select {
	case s.stateReqCh <- resp:
	case <-s.stopped:
		return ScanState{Phase: PhaseIdle}
	}
	select {
	case st := <-resp:
		return st
	case <-s.stopped:
		return ScanState{Phase: PhaseIdle}
	}
}

// Close stops the scanner loop.
func (s *Scanner) Close() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.stopCh)
	}
	<-s.stopped
}
