// Command shilld is the network connection manager daemon (spec.md
// section 1/6). It wires the dispatcher, Manager, Profile stack,
// ProxyFactory, and ModemManager watcher together and runs the single
// cooperative event loop described in spec.md section 5.
//
// Usage:
//
//	shilld [flags]
//
// Flags:
//
//	--foreground                  run in the foreground instead of daemonizing
//	--device-black-list=a,b       interface names to never manage
//	--ignore-unknown-ethernet     ignore ethernet devices without a known driver
//	--portal-list=wifi,cellular   technologies that run portal detection
//	--passive-mode                observe only, apply no configuration
//	--default-technology-order=…  technology priority order (default "vpn,ethernet,wifi,wimax,cellular")
//	--prepend-dns-servers=…       DNS servers to prepend to every resolver config
//	--minimum-mtu=N               minimum MTU accepted from DHCP/RA
//	--accept-hostname-from=glob   interfaces allowed to set the system hostname via DHCP
//	--dhcpv6-enabled-devices=…    interfaces to run DHCPv6 on
package main

import (
	"errors"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/fxamacker/cbor/v2"
	"github.com/godbus/dbus/v5"

	"github.com/shillgo/shillgo/pkg/config"
	"github.com/shillgo/shillgo/pkg/device"
	"github.com/shillgo/shillgo/pkg/devicewatch/modemmanager"
	"github.com/shillgo/shillgo/pkg/dispatcher"
	"github.com/shillgo/shillgo/pkg/elog"
	"github.com/shillgo/shillgo/pkg/manager"
	"github.com/shillgo/shillgo/pkg/netservice"
	"github.com/shillgo/shillgo/pkg/portal"
	"github.com/shillgo/shillgo/pkg/profile"
	"github.com/shillgo/shillgo/pkg/proxyfactory"
	"github.com/shillgo/shillgo/pkg/shillerr"
	"github.com/shillgo/shillgo/pkg/store"
	"github.com/shillgo/shillgo/pkg/wire"
)

const defaultPortalURL = "http://clients3.google.com/generate_204"

// controlSocketPath is the control socket shill-cli dials (spec.md section 6).
const controlSocketPath = "/run/shilld/control.sock"

// blackListPeer is the claiming identity Manager.ClaimInterface records
// against for interfaces black-listed on the command line, since those
// claims never vanish the way a real bus peer's would.
const blackListPeer = "shilld.config"

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		log.Fatalf("shilld: %v", err)
	}

	logFile, err := elog.NewFileLogger("/var/log/shilld/events.cbor")
	if err != nil {
		log.Printf("shilld: protocol event log disabled: %v", err)
	} else {
		defer logFile.Close()
	}

	disp := dispatcher.New()

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		log.Fatalf("shilld: failed to connect to system bus: %v", err)
	}
	defer conn.Close()
	factory := proxyfactory.New(conn)

	detector := portal.New(disp, nil)

	mgr := manager.New(disp, detector, defaultPortalURL)
	mgr.SetTechnologyOrder(cfg.DefaultTechnologyOrder)
	for _, name := range cfg.DeviceBlackList {
		if err := mgr.ClaimInterface(blackListPeer, name); err != nil {
			log.Printf("shilld: could not black-list %s: %v", name, err)
		}
	}

	defaultStore := store.Open("/var/lib/shill/default.profile")
	if err := defaultStore.Load(); err != nil {
		log.Printf("shilld: starting with an empty default profile: %v", err)
	}
	mgr.PushProfile(profile.New("default", defaultStore))

	watcher := modemmanager.New("org.freedesktop.ModemManager1", factory, mgr, cellularModemFactory, mgr)
	_ = watcher // appear/vanish wiring against the real bus's NameOwnerChanged signal is added once shilld owns a D-Bus name-watch loop of its own

	os.Remove(controlSocketPath)
	listener, err := net.Listen("unix", controlSocketPath)
	if err != nil {
		log.Fatalf("shilld: failed to open control socket %s: %v", controlSocketPath, err)
	}
	defer listener.Close()
	bus := wire.NewBus()
	go serveControl(listener, mgr, bus)

	stop := make(chan struct{})
	wake := make(chan struct{}, 1)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("shilld: received signal: %v", sig)
		close(stop)
	}()

	log.Println("shilld: running")
	disp.Run(stop, wake)
	log.Println("shilld: shut down")
}

// cellularModemFactory derives a cellular Device's kernel interface name
// and Capability from an enumerated ModemManager modem object. Real
// bring-up (APN selection, bearer activation against the ModemProxy) is
// out of scope for this daemon skeleton; it is left as a stub Capability
// so the ModemManager Watcher's appear/vanish bookkeeping can be
// exercised end to end before that driver is written.
func cellularModemFactory(objectPath string, proxy proxyfactory.ModemProxy) (string, device.Capability, error) {
	return "wwan" + objectPath, stubCellularCapability{}, nil
}

type stubCellularCapability struct{}

func (stubCellularCapability) Start() error { return nil }
func (stubCellularCapability) Stop() error  { return nil }
func (stubCellularCapability) Connect(svc *netservice.Service) error {
	return nil
}
func (stubCellularCapability) Disconnect(svc *netservice.Service) error {
	return nil
}

// serveControl accepts connections on the control socket and serves each one
// until it closes. One client (shill-cli) is expected at a time, but nothing
// here assumes that.
func serveControl(listener net.Listener, mgr *manager.Manager, bus *wire.Bus) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Printf("shilld: control socket closed: %v", err)
			return
		}
		go serveControlConn(conn, mgr, bus)
	}
}

// serveControlConn decodes MethodCalls off conn and dispatches each to mgr,
// replying on the same connection (spec.md section 6).
func serveControlConn(conn net.Conn, mgr *manager.Manager, bus *wire.Bus) {
	defer conn.Close()
	dec := wire.NewDecoder(conn)
	enc := wire.NewEncoder(conn)

	for {
		var call wire.MethodCall
		if err := dec.Decode(&call); err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("shilld: control connection decode error: %v", err)
			}
			return
		}
		dispatchCall(enc, mgr, bus, &call)
	}
}

// dispatchCall runs call against mgr and writes its reply to enc, honoring
// Connect's deferred-reply contract: an immediate OperationInitiated reply
// carrying a token, followed later by the terminal reply for that token.
func dispatchCall(enc *cbor.Encoder, mgr *manager.Manager, bus *wire.Bus, call *wire.MethodCall) {
	if call.Method.Deferred() {
		token := bus.NewToken(func(reply *wire.MethodReply) {
			if err := enc.Encode(reply); err != nil {
				log.Printf("shilld: failed to write deferred reply: %v", err)
			}
		})
		if err := enc.Encode(&wire.MethodReply{MessageID: call.MessageID, Status: shillerr.OperationInitiated, Token: token}); err != nil {
			log.Printf("shilld: failed to write initiated reply: %v", err)
			return
		}
		bus.CompleteDeferred(token, invokeMethod(mgr, call), nil)
		return
	}

	status := invokeMethod(mgr, call)
	if err := enc.Encode(&wire.MethodReply{MessageID: call.MessageID, Status: status}); err != nil {
		log.Printf("shilld: failed to write reply: %v", err)
	}
}

// invokeMethod runs call against the Manager operation the spec.md section 6
// bus surface maps it to, and translates the result to a Status.
func invokeMethod(mgr *manager.Manager, call *wire.MethodCall) shillerr.Status {
	switch call.Method {
	case wire.MethodConnect:
		return statusOf(mgr.Connect(call.Object, "bus-requested"))
	case wire.MethodDisconnect:
		return statusOf(mgr.Disconnect(call.Object))
	case wire.MethodRemove:
		return statusOf(mgr.RemoveService(call.Object))
	case wire.MethodMoveBefore, wire.MethodMoveAfter:
		var args wire.MoveArgs
		if err := call.DecodeArgs(&args); err != nil {
			return shillerr.InvalidArguments
		}
		if call.Method == wire.MethodMoveBefore {
			return statusOf(mgr.MoveServiceBefore(call.Object, args.Other))
		}
		return statusOf(mgr.MoveServiceAfter(call.Object, args.Other))
	case wire.MethodActivateCellularModem:
		return statusOf(mgr.ActivateCellularModemForService(call.Object))
	default:
		return shillerr.NotSupported
	}
}

// statusOf maps a Manager operation's error to its bus Status, defaulting to
// InternalError for any error that didn't already carry one.
func statusOf(err error) shillerr.Status {
	if err == nil {
		return shillerr.Success
	}
	var se *shillerr.Error
	if errors.As(err, &se) {
		return se.Status
	}
	return shillerr.InternalError
}
