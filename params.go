package iiwa

import (
	"github.com/pkg/errors"
)

// Command/monitor interface selectors understood by the remote controller.
const (
	ModeFRI  = "FRI"
	ModeJAVA = "JAVA"
)

// Params is the fixed configuration record for one driver instance. It is
// read once by Construct and never mutated afterwards; changing any field
// requires building a new driver.
type Params struct {
	TipFrame    string `json:"tip_frame,omitempty"`
	TargetFrame string `json:"target_frame,omitempty"`
	BaseFrame   string `json:"base_frame,omitempty"`

	// Message-transport endpoints for the bridge link.
	LocalTransportAddress  string `json:"local_transport_address,omitempty"`
	RemoteTransportAddress string `json:"remote_transport_address,omitempty"`

	// Low-level realtime protocol endpoints. The realtime session is owned
	// by a lower layer; the addresses ride along so one record configures
	// the whole stack.
	LocalFRIAddress  string `json:"local_fri_address,omitempty"`
	LocalFRIPort     string `json:"local_fri_port,omitempty"`
	RemoteFRIAddress string `json:"remote_fri_address,omitempty"`
	RemoteFRIPort    string `json:"remote_fri_port,omitempty"`

	CommandMode string `json:"command_mode,omitempty"` // "FRI" or "JAVA"
	MonitorMode string `json:"monitor_mode,omitempty"` // "FRI" or "JAVA"

	KinematicsGroup string `json:"kinematics_group,omitempty"`
}

// DefaultParams returns the factory configuration for a single LBR iiwa
// on the KUKA cabinet's standard addressing plan.
func DefaultParams() Params {
	return Params{
		TipFrame:               "RobotMillTip",
		TargetFrame:            "RobotMillTipTarget",
		BaseFrame:              "Robotiiwa",
		LocalTransportAddress:  "tcp://0.0.0.0:30010",
		RemoteTransportAddress: "tcp://172.31.1.147:30010",
		LocalFRIAddress:        "192.170.10.100",
		LocalFRIPort:           "30200",
		RemoteFRIAddress:       "192.170.10.2",
		RemoteFRIPort:          "30200",
		CommandMode:            ModeJAVA,
		MonitorMode:            ModeJAVA,
		KinematicsGroup:        "IK_Group1_iiwa",
	}
}

// Validate fills empty fields from DefaultParams and checks the mode
// selectors. It returns the completed record rather than mutating in
// place so a zero Params{} stays a valid shorthand for the defaults.
func (p Params) Validate() (Params, error) {
	def := DefaultParams()

	if p.TipFrame == "" {
		p.TipFrame = def.TipFrame
	}
	if p.TargetFrame == "" {
		p.TargetFrame = def.TargetFrame
	}
	if p.BaseFrame == "" {
		p.BaseFrame = def.BaseFrame
	}
	if p.LocalTransportAddress == "" {
		p.LocalTransportAddress = def.LocalTransportAddress
	}
	if p.RemoteTransportAddress == "" {
		p.RemoteTransportAddress = def.RemoteTransportAddress
	}
	if p.LocalFRIAddress == "" {
		p.LocalFRIAddress = def.LocalFRIAddress
	}
	if p.LocalFRIPort == "" {
		p.LocalFRIPort = def.LocalFRIPort
	}
	if p.RemoteFRIAddress == "" {
		p.RemoteFRIAddress = def.RemoteFRIAddress
	}
	if p.RemoteFRIPort == "" {
		p.RemoteFRIPort = def.RemoteFRIPort
	}
	if p.CommandMode == "" {
		p.CommandMode = def.CommandMode
	}
	if p.MonitorMode == "" {
		p.MonitorMode = def.MonitorMode
	}
	if p.KinematicsGroup == "" {
		p.KinematicsGroup = def.KinematicsGroup
	}

	if p.CommandMode != ModeFRI && p.CommandMode != ModeJAVA {
		return p, errors.Errorf("command_mode must be %q or %q, got %q", ModeFRI, ModeJAVA, p.CommandMode)
	}
	if p.MonitorMode != ModeFRI && p.MonitorMode != ModeJAVA {
		return p, errors.Errorf("monitor_mode must be %q or %q, got %q", ModeFRI, ModeJAVA, p.MonitorMode)
	}

	return p, nil
}
