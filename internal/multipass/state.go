package multipass

import (
	"encoding/json"
	"fmt"
)

// State is the lifecycle state of an instance as multipass reports it.
// StateAbsent is synthesized for instances missing from `multipass list`.
type State string

const (
	StateAbsent    State = "absent"
	StateRunning   State = "Running"
	StateStopped   State = "Stopped"
	StateSuspended State = "Suspended"
	StateStarting  State = "Starting"
	StateDeleted   State = "Deleted"
	StateUnknown   State = "Unknown"
)

// Exists reports whether the instance is present at all.
func (s State) Exists() bool { return s != StateAbsent }

// CanStart reports whether `multipass start` applies to this state.
func (s State) CanStart() bool {
	return s == StateStopped || s == StateSuspended
}

type listDocument struct {
	List []struct {
		Name  string `json:"name"`
		State string `json:"state"`
	} `json:"list"`
}

// parseListState extracts the named instance's state from
// `multipass list --format json` output.
func parseListState(data []byte, name string) (State, error) {
	var doc listDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return StateUnknown, fmt.Errorf("parsing multipass list output: %w", err)
	}
	for _, inst := range doc.List {
		if inst.Name == name {
			return State(inst.State), nil
		}
	}
	return StateAbsent, nil
}

type infoDocument struct {
	Info map[string]struct {
		Mounts map[string]struct {
			SourcePath string `json:"source_path"`
		} `json:"mounts"`
	} `json:"info"`
}

// parseInfoMounts extracts the named instance's mount table from
// `multipass info --format json` output, keyed by VM path with the host
// source as value.
func parseInfoMounts(data []byte, name string) (map[string]string, error) {
	var doc infoDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing multipass info output: %w", err)
	}
	inst, ok := doc.Info[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q missing from info output", ErrInstanceNotFound, name)
	}
	mounts := make(map[string]string, len(inst.Mounts))
	for vmPath, m := range inst.Mounts {
		mounts[vmPath] = m.SourcePath
	}
	return mounts, nil
}
