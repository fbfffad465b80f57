package main

import "fmt"

// ==============================
// Commands (side effects)
// ==============================

// Command represents an external side effect to be executed by the daemon loop.
// In this codebase, those are permission requests and orientation source control.
type Command interface {
	commandMarker()
	String() string
}

// CmdRequestPermission asks the permission gate for orientation access.
// The effects layer assigns the request id; the answer comes back as a
// PermissionResolved event carrying it.
type CmdRequestPermission struct{}

func (CmdRequestPermission) commandMarker() {}
func (CmdRequestPermission) String() string { return "CmdRequestPermission()" }

// CmdSubscribeOrientation starts delivery of DeviceOrientation events.
type CmdSubscribeOrientation struct{}

func (CmdSubscribeOrientation) commandMarker() {}
func (CmdSubscribeOrientation) String() string { return "CmdSubscribeOrientation()" }

// CmdRemoveAffordance takes the gyro button off the page.
type CmdRemoveAffordance struct {
	ElementID string
}

func (CmdRemoveAffordance) commandMarker() {}
func (c CmdRemoveAffordance) String() string {
	return fmt.Sprintf("CmdRemoveAffordance(element_id=%s)", c.ElementID)
}

// CmdPublishStateSnapshot delivers a reducer-produced snapshot to a requester.
type CmdPublishStateSnapshot struct {
	Reply    chan StateSnapshot
	Snapshot StateSnapshot
}

func (CmdPublishStateSnapshot) commandMarker() {}
func (CmdPublishStateSnapshot) String() string { return "CmdPublishStateSnapshot()" }

// ==============================
// Broadcasts (state fan-out)
// ==============================

// StateBroadcast is a reducer-emitted notification for page clients.
// The daemon hands them to the websocket broadcaster.
type StateBroadcast interface {
	broadcastMarker()
}

// BroadcastDirection is the per-tick publication of the smoothed signal.
type BroadcastDirection struct {
	Property string
	Value    string
	Changed  bool
}

func (BroadcastDirection) broadcastMarker() {}

// BroadcastModeChanged announces the switch to orientation input.
type BroadcastModeChanged struct {
	Mode InputMode
}

func (BroadcastModeChanged) broadcastMarker() {}

// BroadcastAffordanceRemoved tells pages to drop the gyro button.
type BroadcastAffordanceRemoved struct {
	ElementID string
}

func (BroadcastAffordanceRemoved) broadcastMarker() {}

// BroadcastPermissionRequest asks page clients to prompt for orientation access.
type BroadcastPermissionRequest struct {
	RequestID string
}

func (BroadcastPermissionRequest) broadcastMarker() {}
