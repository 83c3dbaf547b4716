package mcp

// WindowArgs names one window.
type WindowArgs struct {
	Window string `json:"window" jsonschema:"required,Window identity in owner/name form (see list_windows)"`
}

// SnapWindowsInput is the input for the snap_windows tool.
type SnapWindowsInput struct {
	Windows []string `json:"windows" jsonschema:"required,At least two window identities in owner/name form. They are moved into one snap group."`
}

// SetOverrideInput is the input for the set_override tool.
type SetOverrideInput struct {
	Window      string   `json:"window" jsonschema:"required,Window identity in owner/name form"`
	Opacity     *float64 `json:"opacity,omitempty" jsonschema:"Temporary opacity between 0 and 1"`
	AlwaysOnTop *bool    `json:"always_on_top,omitempty" jsonschema:"Temporarily keep the window above others"`
	Hidden      *bool    `json:"hidden,omitempty" jsonschema:"Temporarily hide the window"`
}

// ResetOverridesInput is the input for the reset_overrides tool.
type ResetOverridesInput struct {
	Window string   `json:"window" jsonschema:"required,Window identity in owner/name form"`
	Fields []string `json:"fields,omitempty" jsonschema:"Field names to restore (e.g. opacity, alwaysOnTop, hidden). Empty restores every overridden field."`
}

// StatusOutput is the output for the get_status tool.
type StatusOutput struct {
	Backend            string `json:"backend"`
	WindowCount        int    `json:"window_count"`
	SnapGroupCount     int    `json:"snap_group_count"`
	ActiveTransactions int    `json:"active_transactions"`
	UptimeSeconds      int64  `json:"uptime_seconds"`
}

// WindowInfo describes a single managed window.
type WindowInfo struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Stage       string   `json:"stage"`
	State       string   `json:"state"`
	X           int      `json:"x"`
	Y           int      `json:"y"`
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	Opacity     float64  `json:"opacity"`
	AlwaysOnTop bool     `json:"always_on_top"`
	Hidden      bool     `json:"hidden"`
	SnapGroup   []string `json:"snap_group,omitempty"`
	Overrides   []string `json:"overrides,omitempty"`
	Transform   bool     `json:"transform_active"`
}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []WindowInfo `json:"windows"`
}

// ActionOutput reports the outcome of a mutating tool.
type ActionOutput struct {
	Windows []string `json:"windows,omitempty"`
	Message string   `json:"message"`
}
