package netservice

import "time"

// Out-of-credits detection window constants (spec.md section 4.3's
// kOutOfCreditsConnectionDropSeconds / kOutOfCreditsResumeIgnoreSeconds),
// supplemented here since the distilled spec names them symbolically
// without giving magnitudes: a 15-second connection drop window and a
// 60-second resume grace period.
const (
	kOutOfCreditsConnectionDropSeconds = 15 * time.Second
	kOutOfCreditsResumeIgnoreSeconds   = 60 * time.Second
	kMaxDetectionConnectAttempts       = 3
)

// beginOutOfCreditsDetectionIfNeeded starts a fresh detection window unless
// detection is disabled or one of the skip conditions in spec.md section
// 4.3 applies. Only called when detection is not already in progress.
func (s *Service) beginOutOfCreditsDetectionIfNeeded() {
	if s.technology != "cellular" || !s.cell.EnforceOutOfCreditsDetection {
		return
	}
	if s.cell.OutOfCredits {
		return
	}
	if !s.cell.ResumeStartTime.IsZero() && s.now().Sub(s.cell.ResumeStartTime) < kOutOfCreditsResumeIgnoreSeconds {
		return
	}

	s.cell.ConnectStartTime = s.now()
	s.cell.OutOfCreditsDetectionInProgress = true
	s.detectionConnectCount = 0
}

// observeOutOfCreditsTransition drives the detection state machine off of
// SetState transitions while a detection window is open.
func (s *Service) observeOutOfCreditsTransition(old, next State) {
	if !s.cell.OutOfCreditsDetectionInProgress {
		return
	}

	switch {
	case old == StateAssociating && next == StateFailure,
		old == StateConfiguring && next == StateIdle:
		if s.detectionConnectCount < kMaxDetectionConnectAttempts {
			s.scheduleDetectionReconnect()
		}

	case old == StateConnected && next == StateIdle:
		drop := s.now().Sub(s.cell.ConnectStartTime)
		s.cell.OutOfCreditsDetectionInProgress = false
		if drop <= kOutOfCreditsConnectionDropSeconds {
			s.cell.OutOfCredits = true
			s.emit("OutOfCredits", true)
		}
		s.emit("OutOfCreditsDetectionInProgress", false)
	}
}

// scheduleDetectionReconnect posts another Connect attempt for the next
// dispatcher turn, per spec.md section 5's ordering guarantee that
// reconnects raised by a state transition are visible only after
// DispatchPendingEvents.
func (s *Service) scheduleDetectionReconnect() {
	link, reason := s.lastLink, s.lastConnectReason
	retry := func() {
		_ = s.Connect(reason, link)
	}
	if s.disp != nil {
		s.disp.Post(retry)
		return
	}
	retry()
}
