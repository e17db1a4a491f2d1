package permissions

import (
	"encoding/json"
	"sort"

	"github.com/DrSkyle/cloudsweep/pkg/engine"
)

type PolicyDocument struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

type Statement struct {
	Sid      string   `json:"Sid"`
	Effect   string   `json:"Effect"`
	Action   []string `json:"Action"`
	Resource string   `json:"Resource"`
}

// Commands returns every command name in the catalog, sorted.
func Commands() []string {
	names := make([]string, 0, len(Catalog))
	for name := range Catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Actions returns the sorted, deduplicated IAM actions needed by commands
// and features. No commands means all of them.
func Actions(commands, features []string) ([]string, error) {
	desired := make(map[string]bool)
	for _, perm := range CorePermissions() {
		desired[perm] = true
	}

	if len(commands) == 0 {
		commands = Commands()
	}
	for _, name := range commands {
		perms, ok := Catalog[name]
		if !ok {
			return nil, engine.Configf("command", "unknown command %q", name)
		}
		for _, p := range perms {
			desired[p] = true
		}
	}
	for _, name := range features {
		perms, ok := Features[name]
		if !ok {
			return nil, engine.Configf("feature", "unknown feature %q", name)
		}
		for _, p := range perms {
			desired[p] = true
		}
	}

	actions := make([]string, 0, len(desired))
	for a := range desired {
		actions = append(actions, a)
	}
	sort.Strings(actions)
	return actions, nil
}

// GeneratePolicy renders the least-privilege IAM policy for commands.
func GeneratePolicy(commands, features []string) ([]byte, error) {
	actions, err := Actions(commands, features)
	if err != nil {
		return nil, err
	}
	policy := PolicyDocument{
		Version: "2012-10-17",
		Statement: []Statement{
			{
				Sid:      "CloudSweep",
				Effect:   "Allow",
				Action:   actions,
				Resource: "*",
			},
		},
	}
	return json.MarshalIndent(policy, "", "  ")
}
