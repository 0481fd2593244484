package contracts

import "time"

// GrepModel is the persisted form of a grep console's expression and options.
type GrepModel struct {
	Expression    string `json:"expression"`
	CaseSensitive bool   `json:"case_sensitive"`
	WholeWords    bool   `json:"whole_words"`
	Regex         bool   `json:"regex"`
	Exclude       bool   `json:"exclude"`
}

// PinnedGrep is a grep console that is reopened on the next run of its run configuration.
type PinnedGrep struct {
	// UUID of the grep console.
	ConsoleUUID string `json:"console_uuid"`
	// UUID of the console it was derived from; empty for greps of the root console.
	ParentConsoleUUID string `json:"parent_console_uuid,omitempty"`
	// Name of the run configuration the grep belongs to.
	RunConfiguration string    `json:"run_configuration"`
	Model            GrepModel `json:"model"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// RunConfiguration holds per-run-configuration settings.
type RunConfiguration struct {
	Name              string `json:"name"`
	SelectedProfileID int64  `json:"selected_profile_id"`
}
