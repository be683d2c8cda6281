package netservice

// IsAutoConnectable decides whether the Manager may initiate a connection
// to this Service without user action (spec.md section 4.3). When it
// returns false, reason is one of the AutoConn* constants.
func (s *Service) IsAutoConnectable() (ok bool, reason string) {
	if !s.deviceRunning {
		return false, AutoConnDeviceDisabled
	}
	switch s.state {
	case StateConnected:
		return false, AutoConnConnected
	case StateAssociating:
		return false, AutoConnConnecting
	}
	if s.explicitlyDisconnected {
		return false, AutoConnExplicitDisconnect
	}
	if s.technology == "cellular" {
		if s.cell.ActivationStarting || s.cell.ActivationState == "Activating" {
			return false, AutoConnActivating
		}
		if s.cell.OutOfCreditsDetectionInProgress {
			return false, AutoConnOutOfCreditsDetectionInProgress
		}
		if s.cell.OutOfCredits {
			return false, AutoConnOutOfCredits
		}
	}
	if !s.connectable {
		return false, AutoConnNotConnectable
	}
	return true, ""
}
