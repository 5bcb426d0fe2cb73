/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package ops

import (
	"fmt"
	"sort"
	"sync"

	"github.com/spf13/cobra"
)

// CommandGroup represents the operational classification of commands
type CommandGroup string

const (
	GroupBuild   CommandGroup = "build"   // build, fetch, inspect
	GroupSupport CommandGroup = "support" // version, help
)

var groupTitles = map[CommandGroup]string{
	GroupBuild:   "Catalogue Commands:",
	GroupSupport: "Support Commands:",
}

// groupOrder is the order groups appear in help output.
var groupOrder = []CommandGroup{GroupBuild, GroupSupport}

// CommandRegistration represents a registered command with its classification
type CommandRegistration struct {
	Name        string
	Group       CommandGroup
	Command     *cobra.Command
	Description string
}

// Registry manages command classifications and registrations
type Registry struct {
	mu         sync.RWMutex
	commands   map[string]*CommandRegistration
	groupIndex map[CommandGroup][]*CommandRegistration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		commands:   make(map[string]*CommandRegistration),
		groupIndex: make(map[CommandGroup][]*CommandRegistration),
	}
}

// Global registry instance
var globalRegistry = NewRegistry()

// GetRegistry returns the global command registry
func GetRegistry() *Registry {
	return globalRegistry
}

// RegisterCommand registers a command with its operational classification
func RegisterCommand(name string, group CommandGroup, cmd *cobra.Command, description string) error {
	return GetRegistry().Register(name, group, cmd, description)
}

// Register adds a command to the registry
func (r *Registry) Register(name string, group CommandGroup, cmd *cobra.Command, description string) error {
	if _, ok := groupTitles[group]; !ok {
		return fmt.Errorf("unknown command group %q", group)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[name]; exists {
		return fmt.Errorf("command %s already registered", name)
	}

	registration := &CommandRegistration{
		Name:        name,
		Group:       group,
		Command:     cmd,
		Description: description,
	}

	r.commands[name] = registration
	r.groupIndex[group] = append(r.groupIndex[group], registration)

	return nil
}

// GetCommand returns a registered command by name
func (r *Registry) GetCommand(name string) (*CommandRegistration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, exists := r.commands[name]
	return cmd, exists
}

// GetCommandsByGroup returns all commands in a specific group, by name.
func (r *Registry) GetCommandsByGroup(group CommandGroup) []*CommandRegistration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := append([]*CommandRegistration(nil), r.groupIndex[group]...)
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// ListGroups returns all command groups and their command counts
func (r *Registry) ListGroups() map[CommandGroup]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[CommandGroup]int)
	for group, commands := range r.groupIndex {
		result[group] = len(commands)
	}
	return result
}

// ApplyGroups adds a cobra help group to root for every group with registered
// commands and assigns each registered command to its group.
func (r *Registry) ApplyGroups(root *cobra.Command) {
	for _, group := range groupOrder {
		regs := r.GetCommandsByGroup(group)
		if len(regs) == 0 {
			continue
		}
		if !root.ContainsGroup(string(group)) {
			root.AddGroup(&cobra.Group{ID: string(group), Title: groupTitles[group]})
		}
		for _, reg := range regs {
			if reg.Command != nil {
				reg.Command.GroupID = string(group)
			}
		}
	}
}
