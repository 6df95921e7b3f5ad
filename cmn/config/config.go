// Package config loads the runtime's configuration — the option table in
// spec.md §6 — from a discovered YAML file, overridable field-by-field by an
// API-level Options struct (explicit options always win).
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type ThreadModel string

const (
	ThreadSerialize ThreadModel = "serialize"
	ThreadMultiple  ThreadModel = "multiple"
)

type ContextModel string

const (
	ContextDefault ContextModel = "default"
	ContextRegion  ContextModel = "region"
)

type OpenFAMModel string

const (
	ModelSharedMemory  OpenFAMModel = "shared_memory"
	ModelMemoryServer  OpenFAMModel = "memory_server"
)

type CISInterfaceType string

const (
	CISDirect CISInterfaceType = "direct"
	CISRPC    CISInterfaceType = "rpc"
)

type RuntimeKind string

const (
	RuntimeNone  RuntimeKind = "none"
	RuntimePMI2  RuntimeKind = "pmi2"
	RuntimePMIx  RuntimeKind = "pmix"
)

type MemoryType string

const (
	MemoryVolatile   MemoryType = "volatile"
	MemoryPersistent MemoryType = "persistent"
)

type ResourceRelease string

const (
	ResourceReleaseEnable  ResourceRelease = "enable"
	ResourceReleaseDisable ResourceRelease = "disable"
)

// Config mirrors every option enumerated in spec.md §6.
type Config struct {
	DefaultRegionName string `yaml:"default_region_name"`

	CISServer string `yaml:"cis_server"`
	GRPCPort  int    `yaml:"grpc_port"`

	LibfabricProvider string `yaml:"libfabric_provider"`
	IfDevice          string `yaml:"if_device"`

	ThreadModel  ThreadModel  `yaml:"thread_model"`
	ContextModel ContextModel `yaml:"context_model"`
	OpenFAMModel OpenFAMModel `yaml:"openfam_model"`

	CISInterfaceType CISInterfaceType `yaml:"cis_interface_type"`
	RuntimeKind      RuntimeKind      `yaml:"runtime"`

	NumConsumer       int             `yaml:"num_consumer"`
	DefaultMemoryType MemoryType      `yaml:"default_memory_type"`
	RPCFrameworkType  string          `yaml:"rpc_framework_type"`
	ResourceRelease   ResourceRelease `yaml:"resource_release"`

	LocalBufAddr uintptr `yaml:"local_buf_addr"`
	LocalBufSize uint64  `yaml:"local_buf_size"`
}

// Default returns the runtime's built-in defaults, applied before any file
// or Options overrides.
func Default() *Config {
	return &Config{
		DefaultRegionName: "default",
		GRPCPort:          9000,
		ThreadModel:       ThreadMultiple,
		ContextModel:      ContextDefault,
		OpenFAMModel:      ModelMemoryServer,
		CISInterfaceType:  CISDirect,
		RuntimeKind:       RuntimeNone,
		NumConsumer:       1,
		DefaultMemoryType: MemoryVolatile,
		ResourceRelease:   ResourceReleaseEnable,
	}
}

// Load reads a YAML config file and merges it over the defaults. A missing
// file is not an error — the defaults stand alone.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Options carries API-level overrides; any non-zero field wins over the
// loaded file/defaults.
type Options struct {
	DefaultRegionName *string
	CISServer         *string
	GRPCPort          *int
	ThreadModel       *ThreadModel
	ContextModel      *ContextModel
	OpenFAMModel      *OpenFAMModel
	CISInterfaceType  *CISInterfaceType
	NumConsumer       *int
	DefaultMemoryType *MemoryType
	ResourceRelease   *ResourceRelease
}

// Apply overlays non-nil Options fields onto cfg, in place.
func (o *Options) Apply(cfg *Config) {
	if o == nil {
		return
	}
	if o.DefaultRegionName != nil {
		cfg.DefaultRegionName = *o.DefaultRegionName
	}
	if o.CISServer != nil {
		cfg.CISServer = *o.CISServer
	}
	if o.GRPCPort != nil {
		cfg.GRPCPort = *o.GRPCPort
	}
	if o.ThreadModel != nil {
		cfg.ThreadModel = *o.ThreadModel
	}
	if o.ContextModel != nil {
		cfg.ContextModel = *o.ContextModel
	}
	if o.OpenFAMModel != nil {
		cfg.OpenFAMModel = *o.OpenFAMModel
	}
	if o.CISInterfaceType != nil {
		cfg.CISInterfaceType = *o.CISInterfaceType
	}
	if o.NumConsumer != nil {
		cfg.NumConsumer = *o.NumConsumer
	}
	if o.DefaultMemoryType != nil {
		cfg.DefaultMemoryType = *o.DefaultMemoryType
	}
	if o.ResourceRelease != nil {
		cfg.ResourceRelease = *o.ResourceRelease
	}
}
