package emergency

import "time"

// UpdateKind classifies a broadcast update.
type UpdateKind string

// Update kinds, in the order a full cycle produces them.
const (
	// UpdateSnapshot opens a watch with the state at subscription time.
	UpdateSnapshot  UpdateKind = "snapshot"
	UpdateArmed     UpdateKind = "armed"
	UpdateTick      UpdateKind = "tick"
	UpdateActivated UpdateKind = "activated"
	UpdateHook      UpdateKind = "hook"
	UpdateCancelled UpdateKind = "cancelled"
	UpdateReset     UpdateKind = "reset"
	UpdateNotice    UpdateKind = "notice"
)

// NoticeLevel is the severity of a user-facing notice.
type NoticeLevel string

// Notice levels.
const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a short message meant for the person holding the button.
type Notice struct {
	Level   NoticeLevel
	Message string
}

// Update is what observers of the coordinator receive.
type Update struct {
	// Kind classifies the update.
	Kind UpdateKind
	// At is when the update was produced.
	At time.Time
	// State is the snapshot after the transition.
	State *State
	// Notice is set for UpdateNotice.
	Notice *Notice
	// Hook is set for UpdateHook.
	Hook *HookResult
}
