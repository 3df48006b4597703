package config

import (
	"path/filepath"
	"strings"
)

// PromptDelivery is the capability tag that decides how a prompt reaches the
// agent process.
type PromptDelivery string

const (
	// DeliveryStdin writes the prompt to the agent's standard input.
	DeliveryStdin PromptDelivery = "stdin"
	// DeliveryFile writes the prompt to a per-iteration file and passes its
	// path as the last argument.
	DeliveryFile PromptDelivery = "file"
)

// Known agent CLIs
const (
	AgentClaude = "claude"
	AgentCodex  = "codex"
	AgentAmp    = "amp"
)

type agentProfile struct {
	nonReplArgs []string
	delivery    PromptDelivery
}

var agentProfiles = map[string]agentProfile{
	AgentClaude: {nonReplArgs: []string{"-p"}, delivery: DeliveryStdin},
	AgentCodex:  {nonReplArgs: []string{"e"}, delivery: DeliveryFile},
	AgentAmp:    {nonReplArgs: []string{"-x"}, delivery: DeliveryStdin},
}

// NormalizeAgentName reduces an agent command to the lowercase base name used
// for the capability lookup.
func NormalizeAgentName(command string) string {
	command = strings.TrimSpace(command)
	if command == "" {
		return ""
	}
	return strings.ToLower(filepath.Base(command))
}

// ResolveAgent returns the non-interactive arguments and prompt delivery mode
// for an agent command. Unknown agents get no extra arguments and stdin
// delivery.
func ResolveAgent(command string) ([]string, PromptDelivery) {
	profile, ok := agentProfiles[NormalizeAgentName(command)]
	if !ok {
		return []string{}, DeliveryStdin
	}
	args := make([]string, len(profile.nonReplArgs))
	copy(args, profile.nonReplArgs)
	return args, profile.delivery
}
