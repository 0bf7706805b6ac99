// Package messaging defines the request/response boundary between the popup
// and a page session.
//
// The command set is closed. A responder answers every known command and
// treats anything else as a no-op. A caller that finds no responder (the
// page is not loaded yet, or was navigated away) gets ErrNoResponder and
// should render its "no data" state.
package messaging

import (
	"encoding/json"
	"fmt"
)

// Command identifies a request.
type Command int

const (
	// CommandUnknown is any action name this build does not know.
	CommandUnknown Command = iota
	// GetFoundNames returns found names, enabled names, their dictionary
	// entries and the extension flag.
	GetFoundNames
	// EnableAll annotates every found name.
	EnableAll
	// EnableSelected annotates the listed names.
	EnableSelected
	// UpdateSelected reconciles the document to exactly the listed names.
	UpdateSelected
	// DisableAll removes every annotation.
	DisableAll
	// ToggleExtension sets the persisted extension flag.
	ToggleExtension
	// GetExtensionState returns the extension flag.
	GetExtensionState
	// Dismiss hides any visible overlay.
	Dismiss
	// DisableToastForDomain stops the automatic toast on the page's root
	// domain.
	DisableToastForDomain
)

var commandNames = [...]string{
	CommandUnknown:        "unknown",
	GetFoundNames:         "getFoundNames",
	EnableAll:             "enableAll",
	EnableSelected:        "enableSelected",
	UpdateSelected:        "updateSelected",
	DisableAll:            "disableAll",
	ToggleExtension:       "toggleExtension",
	GetExtensionState:     "getExtensionState",
	Dismiss:               "dismiss",
	DisableToastForDomain: "disableToastForDomain",
}

// Commands lists every known command.
func Commands() []Command {
	out := make([]Command, 0, len(commandNames)-1)
	for c := GetFoundNames; int(c) < len(commandNames); c++ {
		out = append(out, c)
	}
	return out
}

func (c Command) String() string {
	if c < 0 || int(c) >= len(commandNames) {
		return fmt.Sprintf("Command(%d)", int(c))
	}
	return commandNames[c]
}

// ParseCommand maps an action name to its Command. Unknown names map to
// CommandUnknown.
func ParseCommand(s string) Command {
	for i, name := range commandNames {
		if i != int(CommandUnknown) && name == s {
			return Command(i)
		}
	}
	return CommandUnknown
}

// MarshalJSON encodes the action name.
func (c Command) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes an action name. Unknown names are not an error.
func (c *Command) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*c = ParseCommand(s)
	return nil
}
