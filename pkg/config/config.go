// Package config implements the CLI surface of spec.md section 6's daemon
// entry flags. It is grounded on the teacher's cmd/mash-controller/main.go
// (a Config struct populated by flag.*Var calls in a dedicated setup
// step), generalized to a dedicated flag.FlagSet so Parse can be
// exercised in tests without touching the process's global flag.CommandLine.
//
// An optional on-disk YAML file (--config) seeds defaults the same way the
// teacher's pkg/specparse/pkg/usecase packages load their YAML documents
// (os.ReadFile + yaml.Unmarshal): explicit command-line flags always win
// over a value from the file.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultTechnologyOrder is the compile-time fallback for
// --default-technology-order, per spec.md section 6.
const DefaultTechnologyOrder = "vpn,ethernet,wifi,wimax,cellular"

// Config holds every daemon CLI flag (spec.md section 6).
type Config struct {
	Foreground            bool
	DeviceBlackList        []string
	IgnoreUnknownEthernet bool
	PortalList             []string
	PassiveMode            bool
	DefaultTechnologyOrder []string
	PrependDNSServers      []string
	MinimumMTU             int
	AcceptHostnameFrom     string
	DHCPv6EnabledDevices   []string

	// ConfigFile is the path loaded by --config, if any, purely for
	// diagnostics; its contents have already been merged into the other
	// fields by the time Parse returns.
	ConfigFile string
}

// fileConfig is the on-disk shape of --config's YAML document. Scalar
// fields are pointers so a field simply absent from the file (nil) is
// distinguishable from one explicitly set to its zero value.
type fileConfig struct {
	Foreground            *bool    `yaml:"foreground"`
	DeviceBlackList        []string `yaml:"device_black_list"`
	IgnoreUnknownEthernet *bool    `yaml:"ignore_unknown_ethernet"`
	PortalList             []string `yaml:"portal_list"`
	PassiveMode            *bool    `yaml:"passive_mode"`
	DefaultTechnologyOrder []string `yaml:"default_technology_order"`
	PrependDNSServers      []string `yaml:"prepend_dns_servers"`
	MinimumMTU             *int     `yaml:"minimum_mtu"`
	AcceptHostnameFrom     *string  `yaml:"accept_hostname_from"`
	DHCPv6EnabledDevices   []string `yaml:"dhcpv6_enabled_devices"`
}

// loadConfigFile reads and parses a --config YAML document, in the idiom
// the teacher uses for its own YAML documents (pkg/specparse, pkg/usecase):
// os.ReadFile followed by yaml.Unmarshal.
func loadConfigFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}
	return &fc, nil
}

// Parse parses args (normally os.Args[1:]) into a Config. Fatal conditions
// per spec.md section 7 (invalid --minimum-mtu) are returned as an error
// rather than calling os.Exit, leaving the exit policy to the caller.
// Invalid --default-technology-order silently falls back to
// DefaultTechnologyOrder rather than erroring (spec.md section 6).
func Parse(args []string) (*Config, error) {
	fs := flag.NewFlagSet("shilld", flag.ContinueOnError)

	var (
		deviceBlackList        string
		portalList             string
		defaultTechnologyOrder string
		prependDNSServers      string
		minimumMTU             string
		dhcpv6EnabledDevices   string
	)

	cfg := &Config{}
	fs.BoolVar(&cfg.Foreground, "foreground", false, "run in the foreground instead of daemonizing")
	fs.StringVar(&deviceBlackList, "device-black-list", "", "comma-separated interface names to never manage")
	fs.BoolVar(&cfg.IgnoreUnknownEthernet, "ignore-unknown-ethernet", false, "ignore ethernet devices without a known driver")
	fs.StringVar(&portalList, "portal-list", "", "comma-separated technologies that should run portal detection")
	fs.BoolVar(&cfg.PassiveMode, "passive-mode", false, "do not apply any configuration, observe only")
	fs.StringVar(&defaultTechnologyOrder, "default-technology-order", DefaultTechnologyOrder, "comma-separated technology priority order")
	fs.StringVar(&prependDNSServers, "prepend-dns-servers", "", "comma-separated DNS servers to prepend to every resolver configuration")
	fs.StringVar(&minimumMTU, "minimum-mtu", "", "minimum MTU accepted from a DHCP/RA configuration")
	fs.StringVar(&cfg.AcceptHostnameFrom, "accept-hostname-from", "", "glob of interface names allowed to set the system hostname via DHCP")
	fs.StringVar(&dhcpv6EnabledDevices, "dhcpv6-enabled-devices", "", "comma-separated interface names to run DHCPv6 on")
	fs.StringVar(&cfg.ConfigFile, "config", "", "path to an optional YAML file supplying defaults for the flags above")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.DeviceBlackList = splitCSV(deviceBlackList)
	cfg.PortalList = splitCSV(portalList)
	cfg.PrependDNSServers = splitCSV(prependDNSServers)
	cfg.DHCPv6EnabledDevices = splitCSV(dhcpv6EnabledDevices)

	cfg.DefaultTechnologyOrder = parseTechnologyOrder(defaultTechnologyOrder)

	if minimumMTU != "" {
		mtu, err := strconv.Atoi(minimumMTU)
		if err != nil || mtu <= 0 {
			return nil, fmt.Errorf("invalid --minimum-mtu %q: must be a positive integer", minimumMTU)
		}
		cfg.MinimumMTU = mtu
	}

	if cfg.ConfigFile != "" {
		fc, err := loadConfigFile(cfg.ConfigFile)
		if err != nil {
			return nil, err
		}
		explicit := make(map[string]bool)
		fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
		applyFileConfig(cfg, fc, explicit)
	}

	return cfg, nil
}

// applyFileConfig overlays fc onto cfg for every field whose corresponding
// flag the caller did not pass explicitly (explicit records flag.Visit, so a
// default-valued command-line flag still counts as unset). Command-line
// flags always win over the file.
func applyFileConfig(cfg *Config, fc *fileConfig, explicit map[string]bool) {
	if !explicit["foreground"] && fc.Foreground != nil {
		cfg.Foreground = *fc.Foreground
	}
	if !explicit["device-black-list"] && fc.DeviceBlackList != nil {
		cfg.DeviceBlackList = fc.DeviceBlackList
	}
	if !explicit["ignore-unknown-ethernet"] && fc.IgnoreUnknownEthernet != nil {
		cfg.IgnoreUnknownEthernet = *fc.IgnoreUnknownEthernet
	}
	if !explicit["portal-list"] && fc.PortalList != nil {
		cfg.PortalList = fc.PortalList
	}
	if !explicit["passive-mode"] && fc.PassiveMode != nil {
		cfg.PassiveMode = *fc.PassiveMode
	}
	if !explicit["default-technology-order"] && fc.DefaultTechnologyOrder != nil {
		cfg.DefaultTechnologyOrder = fc.DefaultTechnologyOrder
	}
	if !explicit["prepend-dns-servers"] && fc.PrependDNSServers != nil {
		cfg.PrependDNSServers = fc.PrependDNSServers
	}
	if !explicit["minimum-mtu"] && fc.MinimumMTU != nil {
		cfg.MinimumMTU = *fc.MinimumMTU
	}
	if !explicit["accept-hostname-from"] && fc.AcceptHostnameFrom != nil {
		cfg.AcceptHostnameFrom = *fc.AcceptHostnameFrom
	}
	if !explicit["dhcpv6-enabled-devices"] && fc.DHCPv6EnabledDevices != nil {
		cfg.DHCPv6EnabledDevices = fc.DHCPv6EnabledDevices
	}
}

// validTechnologies is the closed set of technology tags
// --default-technology-order may name; anything else is rejected wholesale
// in favor of DefaultTechnologyOrder (spec.md section 6).
var validTechnologies = map[string]bool{
	"vpn": true, "ethernet": true, "wifi": true, "wimax": true, "cellular": true,
}

// parseTechnologyOrder validates raw against validTechnologies, falling
// back to DefaultTechnologyOrder on any empty entry, unknown technology, or
// duplicate.
func parseTechnologyOrder(raw string) []string {
	fallback := splitCSV(DefaultTechnologyOrder)
	if raw == "" {
		return fallback
	}
	parts := splitCSV(raw)
	if len(parts) == 0 {
		return fallback
	}
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		if !validTechnologies[p] || seen[p] {
			return fallback
		}
		seen[p] = true
	}
	return parts
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
