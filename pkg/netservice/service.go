package netservice

import (
	"fmt"
	"regexp"
	"time"

	"github.com/shillgo/shillgo/pkg/dispatcher"
	"github.com/shillgo/shillgo/pkg/shillerr"
	"github.com/shillgo/shillgo/pkg/store"
)

// DeviceLink is the narrow surface a Service needs from its associated
// Device to drive bring-up/tear-down. The Manager supplies the concrete
// Device (itself implementing DeviceLink) on each call, so Service never
// imports pkg/device: the weak Service<->Device relationship from spec.md
// section 3 is realized as "ID plus caller-supplied capability", not a
// live pointer, matching the arena+index design of spec.md section 9.
type DeviceLink interface {
	Connect() error
	Disconnect() error
}

// ServiceLike is the narrow surface pkg/profile needs from a Service:
// identity plus persistence, without importing the full Service type (and
// thereby avoiding a profile<->netservice import cycle risk as both grow).
type ServiceLike interface {
	StorageIdentifier() string
	Load(st *store.Store) error
	Save(st *store.Store) error
}

// EAPCredentials is the opaque-to-core 802.1X credential bundle. Password-
// like fields are stored crypted at rest by the persistence layer.
type EAPCredentials struct {
	Identity           string
	EAP                string
	InnerEAP           string
	AnonymousIdentity  string
	ClientCert         string
	CertID             string
	PrivateKey         string
	PrivateKeyPassword string
	KeyID              string
	CACert             string
	CACertID           string
	UseSystemCAs       bool
	PIN                string
	Password           string
	KeyMgmt            string
}

// Policy is the user-facing connection policy for a Service.
type Policy struct {
	AutoConnect     bool
	CheckPortal     string // "auto", "true", "false"
	Priority        int
	HasPriority     bool
	Favorite        bool
	SaveCredentials bool
}

// Cellular holds the fields that only apply to cellular Services.
type Cellular struct {
	ActivationState                string
	NetworkTechnology               string
	RoamingState                    string
	OLPURL                          string
	OLPMethod                       string
	APN                             string
	LastGoodAPN                     string
	OutOfCredits                    bool
	OutOfCreditsDetectionInProgress bool
	ConnectStartTime                time.Time
	ResumeStartTime                 time.Time
	ActivateOverNonCellularNetwork  bool
	EnforceOutOfCreditsDetection    bool
	ActivationStarting              bool
}

// Service is a candidate network attachment (spec.md section 3/4.3).
type Service struct {
	storageIdentifier string
	technology        string

	state   State
	failure FailureReason

	policy Policy
	eap    EAPCredentials
	cell   Cellular

	deviceRunning         bool
	credentialsSatisfied  bool
	explicitlyDisconnected bool
	connectable           bool

	connectAttempts       int // test/observability hook: counts DeviceLink.Connect invocations
	detectionConnectCount int
	lastLink              DeviceLink
	lastConnectReason     string

	owningProfile string

	now  func() time.Time
	disp *dispatcher.Dispatcher

	onPropertyChanged func(name string, value any)
}

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]`)

// SanitizeStorageIdentifier replaces every non-alphanumeric rune with '_',
// per spec.md section 3's storage_identifier contract.
func SanitizeStorageIdentifier(s string) string {
	return nonAlnum.ReplaceAllString(s, "_")
}

// New creates a Service identified by storageID (already sanitized by the
// caller if derived from a caller-supplied name).
func New(storageID, technology string) *Service {
	return &Service{
		storageIdentifier: storageID,
		technology:        technology,
		state:             StateIdle,
		now:               time.Now,
	}
}

// SetDispatcher installs the dispatcher used to defer reconnect attempts
// raised by out-of-credits detection to the next turn.
func (s *Service) SetDispatcher(d *dispatcher.Dispatcher) { s.disp = d }

// SetClock overrides the time source, for deterministic tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// OnPropertyChanged installs the callback invoked whenever a bus-visible
// property changes. Re-setting a property to its current value never
// invokes it (spec.md section 4.3).
func (s *Service) OnPropertyChanged(fn func(name string, value any)) { s.onPropertyChanged = fn }

func (s *Service) emit(name string, value any) {
	if s.onPropertyChanged != nil {
		s.onPropertyChanged(name, value)
	}
}

// StorageIdentifier returns the Service's stable storage key.
func (s *Service) StorageIdentifier() string { return s.storageIdentifier }

// Technology returns the Service's technology tag (e.g. "wifi", "cellular").
func (s *Service) Technology() string { return s.technology }

// OwningProfile returns the name of the Profile currently claiming this
// Service, or "" if unclaimed.
func (s *Service) OwningProfile() string { return s.owningProfile }

// SetOwningProfile records that profile now owns this Service (spec.md
// section 4.5, Profile.AdoptService).
func (s *Service) SetOwningProfile(profile string) { s.owningProfile = profile }

// ClearOwningProfile releases ownership if profile is the current owner;
// a no-op otherwise.
func (s *Service) ClearOwningProfile(profile string) {
	if s.owningProfile == profile {
		s.owningProfile = ""
	}
}

// State returns the current connection state.
func (s *Service) State() State { return s.state }

// Failure returns the current failure reason (meaningful only in StateFailure).
func (s *Service) Failure() FailureReason { return s.failure }

// Policy returns a copy of the Service's current policy.
func (s *Service) Policy() Policy { return s.policy }

// SetPolicy replaces the Service's policy wholesale, emitting one property
// change per field that actually changed.
func (s *Service) SetPolicy(p Policy) {
	old := s.policy
	s.policy = p
	if old.AutoConnect != p.AutoConnect {
		s.emit("AutoConnect", p.AutoConnect)
	}
	if old.Favorite != p.Favorite {
		s.emit("Favorite", p.Favorite)
	}
	if old.Priority != p.Priority || old.HasPriority != p.HasPriority {
		s.emit("Priority", p.Priority)
	}
	if old.CheckPortal != p.CheckPortal {
		s.emit("CheckPortal", p.CheckPortal)
	}
	if old.SaveCredentials != p.SaveCredentials {
		s.emit("SaveCredentials", p.SaveCredentials)
	}
}

// SetDeviceRunning records whether the associated Device is present and
// running; this feeds the Connectable invariant.
func (s *Service) SetDeviceRunning(running bool) {
	if s.deviceRunning == running {
		return
	}
	s.deviceRunning = running
	s.recomputeConnectable()
}

// SetCredentialsSatisfied records whether the technology-specific
// credential predicate is currently satisfied; this feeds the Connectable
// invariant. Credential content itself is opaque to this package.
func (s *Service) SetCredentialsSatisfied(ok bool) {
	if s.credentialsSatisfied == ok {
		return
	}
	s.credentialsSatisfied = ok
	s.recomputeConnectable()
}

// Cellular returns a copy of the cellular-only fields.
func (s *Service) Cellular() Cellular { return s.cell }

// ConnectAttempts returns the number of times DeviceLink.Connect has been
// invoked through this Service, for tests asserting out-of-credits
// detection's reconnect count.
func (s *Service) ConnectAttempts() int { return s.connectAttempts }

// SetEnforceOutOfCreditsDetection toggles cellular out-of-credits detection.
func (s *Service) SetEnforceOutOfCreditsDetection(enforce bool) {
	s.cell.EnforceOutOfCreditsDetection = enforce
}

// SetCellularActivationState sets the cellular activation state string.
// "NotActivated" makes the Service non-connectable per spec.md section 3.
func (s *Service) SetCellularActivationState(state string) {
	if s.cell.ActivationState == state {
		return
	}
	s.cell.ActivationState = state
	s.recomputeConnectable()
}

func (s *Service) activationBlocksConnectable() bool {
	return s.technology == "cellular" && s.cell.ActivationState == "NotActivated"
}

// Connectable reports whether the Service currently satisfies every
// precondition to attempt a connection (spec.md section 3).
func (s *Service) Connectable() bool { return s.connectable }

func (s *Service) recomputeConnectable() {
	next := s.deviceRunning && s.credentialsSatisfied && !s.activationBlocksConnectable()
	if next == s.connectable {
		return
	}
	s.connectable = next
	s.emit("Connectable", next)
}

// Connect moves the Service to Associating and asks link to start
// bring-up. Fails with InvalidArguments if the Service is not connectable.
func (s *Service) Connect(reason string, link DeviceLink) error {
	if !s.connectable {
		return shillerr.New(shillerr.InvalidArguments, fmt.Sprintf("service %q is not connectable", s.storageIdentifier))
	}

	s.explicitlyDisconnected = false
	s.lastLink = link
	s.lastConnectReason = reason

	if !s.cell.OutOfCreditsDetectionInProgress {
		s.beginOutOfCreditsDetectionIfNeeded()
	}

	s.SetState(StateAssociating)

	s.connectAttempts++
	if s.cell.OutOfCreditsDetectionInProgress {
		s.detectionConnectCount++
	}
	if err := link.Connect(); err != nil {
		s.SetFailure(FailureConnect)
		return err
	}
	return nil
}

// Disconnect asks link to tear down and moves the Service to Idle.
func (s *Service) Disconnect(link DeviceLink) error {
	err := link.Disconnect()
	s.SetState(StateIdle)
	return err
}

// UserInitiatedDisconnect is Disconnect plus setting explicitly_disconnected,
// which suppresses auto-connect until Load or OnAfterResume. A user-
// initiated disconnect also cancels any in-progress out-of-credits
// detection without declaring out_of_credits (spec.md section 4.3).
func (s *Service) UserInitiatedDisconnect(link DeviceLink) error {
	s.explicitlyDisconnected = true
	s.cell.OutOfCreditsDetectionInProgress = false
	return s.Disconnect(link)
}

// OnAfterResume clears explicitly_disconnected and records the resume time,
// used both by auto-connect eligibility and out-of-credits detection skip
// logic.
func (s *Service) OnAfterResume() {
	s.explicitlyDisconnected = false
	s.cell.ResumeStartTime = s.now()
}

// SetState transitions the Service to newState, clearing any failure
// reason on every non-Failure transition, driving out-of-credits detection
// observation, and emitting exactly one property change (none if newState
// equals the current state).
func (s *Service) SetState(newState State) {
	if newState == s.state {
		return
	}
	old := s.state
	s.state = newState
	if newState != StateFailure {
		s.failure = FailureUnknown
	}
	s.emit("State", newState.String())

	s.observeOutOfCreditsTransition(old, newState)
}

// SetFailure sets state to Failure and stores the reason.
func (s *Service) SetFailure(reason FailureReason) {
	s.failure = reason
	s.SetState(StateFailure)
}

// Load populates policy and credentials from store under the Service's
// storage identifier. Fails with NotFound if the group is absent. Loading
// re-enables auto-connect by clearing explicitly_disconnected.
func (s *Service) Load(st *store.Store) error {
	if !st.ContainsGroup(s.storageIdentifier) {
		return shillerr.New(shillerr.NotFound, fmt.Sprintf("no stored entry for %q", s.storageIdentifier))
	}
	group := s.storageIdentifier

	if v, ok := st.GetBool(group, "AutoConnect"); ok {
		s.policy.AutoConnect = v
	}
	if v, ok := st.GetString(group, "CheckPortal"); ok {
		s.policy.CheckPortal = v
	} else {
		s.policy.CheckPortal = "auto"
	}
	if v, ok := st.GetBool(group, "Favorite"); ok {
		s.policy.Favorite = v
	}
	if v, ok := st.GetInt(group, "Priority"); ok {
		s.policy.Priority = int(v)
		s.policy.HasPriority = true
	} else {
		s.policy.HasPriority = false
	}
	if v, ok := st.GetBool(group, "SaveCredentials"); ok {
		s.policy.SaveCredentials = v
	}

	if v, ok := st.GetCryptedString(group, "EAP.Identity"); ok {
		s.eap.Identity = v
	}
	if v, ok := st.GetString(group, "EAP.EAP"); ok {
		s.eap.EAP = v
	}
	if v, ok := st.GetString(group, "EAP.InnerEAP"); ok {
		s.eap.InnerEAP = v
	}
	if v, ok := st.GetCryptedString(group, "EAP.AnonymousIdentity"); ok {
		s.eap.AnonymousIdentity = v
	}
	if v, ok := st.GetString(group, "EAP.ClientCert"); ok {
		s.eap.ClientCert = v
	}
	if v, ok := st.GetString(group, "EAP.CertID"); ok {
		s.eap.CertID = v
	}
	if v, ok := st.GetString(group, "EAP.PrivateKey"); ok {
		s.eap.PrivateKey = v
	}
	if v, ok := st.GetCryptedString(group, "EAP.PrivateKeyPassword"); ok {
		s.eap.PrivateKeyPassword = v
	}
	if v, ok := st.GetString(group, "EAP.KeyID"); ok {
		s.eap.KeyID = v
	}
	if v, ok := st.GetString(group, "EAP.CACert"); ok {
		s.eap.CACert = v
	}
	if v, ok := st.GetString(group, "EAP.CACertID"); ok {
		s.eap.CACertID = v
	}
	if v, ok := st.GetBool(group, "EAP.UseSystemCAs"); ok {
		s.eap.UseSystemCAs = v
	}
	if v, ok := st.GetString(group, "EAP.PIN"); ok {
		s.eap.PIN = v
	}
	if v, ok := st.GetCryptedString(group, "EAP.Password"); ok {
		s.eap.Password = v
	}
	if v, ok := st.GetString(group, "EAP.KeyMgmt"); ok {
		s.eap.KeyMgmt = v
	}

	s.explicitlyDisconnected = false
	return nil
}

// eapCredentialKeys lists every spec.md section 6 EAP key, in storage-key
// order. Save's SaveCredentials=false path deletes each of them; its write
// path names each key separately rather than iterating this list.
var eapCredentialKeys = []string{
	"EAP.Identity", "EAP.EAP", "EAP.InnerEAP", "EAP.AnonymousIdentity",
	"EAP.ClientCert", "EAP.CertID", "EAP.PrivateKey", "EAP.PrivateKeyPassword",
	"EAP.KeyID", "EAP.CACert", "EAP.CACertID", "EAP.UseSystemCAs",
	"EAP.PIN", "EAP.Password", "EAP.KeyMgmt",
}

// Save persists policy and, when SaveCredentials is true, credentials.
// Empty strings are deleted rather than written; SaveCredentials=false
// deletes credential keys.
func (s *Service) Save(st *store.Store) error {
	group := s.storageIdentifier

	st.SetBool(group, "AutoConnect", s.policy.AutoConnect)
	if s.policy.CheckPortal != "" && s.policy.CheckPortal != "auto" {
		st.SetString(group, "CheckPortal", s.policy.CheckPortal)
	} else {
		st.DeleteKey(group, "CheckPortal")
	}
	st.SetBool(group, "Favorite", s.policy.Favorite)
	if s.policy.HasPriority {
		st.SetInt(group, "Priority", int32(s.policy.Priority))
	} else {
		st.DeleteKey(group, "Priority")
	}
	st.SetBool(group, "SaveCredentials", s.policy.SaveCredentials)

	if !s.policy.SaveCredentials {
		for _, key := range eapCredentialKeys {
			st.DeleteKey(group, key)
		}
		return st.Flush()
	}

	if err := s.saveEAPField(st, group, "EAP.Identity", s.eap.Identity, true); err != nil {
		return err
	}
	if err := s.saveEAPField(st, group, "EAP.EAP", s.eap.EAP, false); err != nil {
		return err
	}
	if err := s.saveEAPField(st, group, "EAP.InnerEAP", s.eap.InnerEAP, false); err != nil {
		return err
	}
	if err := s.saveEAPField(st, group, "EAP.AnonymousIdentity", s.eap.AnonymousIdentity, true); err != nil {
		return err
	}
	if err := s.saveEAPField(st, group, "EAP.ClientCert", s.eap.ClientCert, false); err != nil {
		return err
	}
	if err := s.saveEAPField(st, group, "EAP.CertID", s.eap.CertID, false); err != nil {
		return err
	}
	if err := s.saveEAPField(st, group, "EAP.PrivateKey", s.eap.PrivateKey, false); err != nil {
		return err
	}
	if err := s.saveEAPField(st, group, "EAP.PrivateKeyPassword", s.eap.PrivateKeyPassword, true); err != nil {
		return err
	}
	if err := s.saveEAPField(st, group, "EAP.KeyID", s.eap.KeyID, false); err != nil {
		return err
	}
	if err := s.saveEAPField(st, group, "EAP.CACert", s.eap.CACert, false); err != nil {
		return err
	}
	if err := s.saveEAPField(st, group, "EAP.CACertID", s.eap.CACertID, false); err != nil {
		return err
	}
	st.SetBool(group, "EAP.UseSystemCAs", s.eap.UseSystemCAs)
	if err := s.saveEAPField(st, group, "EAP.PIN", s.eap.PIN, false); err != nil {
		return err
	}
	if err := s.saveEAPField(st, group, "EAP.Password", s.eap.Password, true); err != nil {
		return err
	}
	if err := s.saveEAPField(st, group, "EAP.KeyMgmt", s.eap.KeyMgmt, false); err != nil {
		return err
	}

	if err := st.Flush(); err != nil {
		return shillerr.New(shillerr.InternalError, err.Error())
	}
	return nil
}

// saveEAPField writes a single EAP string field, deleting the key instead
// when value is empty (spec.md section 6: "empty strings are deleted").
// crypted selects GetCryptedString/SetCryptedString for the password-like
// fields the spec marks as crypted.
func (s *Service) saveEAPField(st *store.Store, group, key, value string, crypted bool) error {
	if value == "" {
		st.DeleteKey(group, key)
		return nil
	}
	if !crypted {
		st.SetString(group, key, value)
		return nil
	}
	if err := st.SetCryptedString(group, key, value); err != nil {
		return shillerr.New(shillerr.InternalError, err.Error())
	}
	return nil
}
