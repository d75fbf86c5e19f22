// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cluster translates the per-rule resource table from the run
// configuration into the batch-queue configuration file and the queue
// assignment policy for submission.
package cluster

import (
	"fmt"
	"sort"

	"github.com/BIMSBbioinfo/pigx-common/internal/runconfig"
	"github.com/BIMSBbioinfo/pigx-common/internal/settings"
)

// DefaultRule is the reserved rule name holding cluster-wide defaults.
const DefaultRule = "__default__"

// ConfigFile is where the cluster configuration is written, relative to
// the working directory.
const ConfigFile = "cluster_conf.json"

// QueuePolicy is the closed set of queue assignment outcomes for a run.
type QueuePolicy int

const (
	// NoQueue leaves queue selection to the queue manager.
	NoQueue QueuePolicy = iota
	// GlobalQueue submits every rule to one named queue.
	GlobalQueue
	// PerRuleQueue lets rules name their own queue, falling back to the
	// default rule's queue.
	PerRuleQueue
)

// Selection is the outcome of the queue decision. Queue holds the global
// queue name for GlobalQueue, and the fallback queue for PerRuleQueue.
type Selection struct {
	Policy QueuePolicy
	Queue  string
}

// DecideQueue applies the three-way precedence policy to the execution
// section. Exactly one source may apply: the global cluster queue, per-rule
// queues (which require the default rule to carry one), or none. Both a
// global and any per-rule queue set at once is a configuration error.
func DecideQueue(execution settings.Document) (Selection, error) {
	global := execution.String("cluster", "queue")
	rules := execution.Section("rules")

	perRule := false
	for name := range rules {
		if rules.String(name, "queue") == "" {
			continue
		}
		if global != "" {
			return Selection{}, fmt.Errorf(
				"conflicting queue specification: execution.cluster.queue is %q but rule %q sets its own queue", global, name)
		}
		perRule = true
	}

	if perRule {
		fallback := rules.String(DefaultRule, "queue")
		if fallback == "" {
			return Selection{}, fmt.Errorf("per-rule queues require a queue on the %s rule", DefaultRule)
		}
		return Selection{Policy: PerRuleQueue, Queue: fallback}, nil
	}
	if global != "" {
		return Selection{Policy: GlobalQueue, Queue: global}, nil
	}
	return Selection{Policy: NoQueue}, nil
}

// Build produces the cluster configuration table keyed by rule name. Every
// rule gets {nthreads, MEM, h_stack} plus a queue entry when the decided
// policy assigns one. The default rule is emitted too; the engine uses it
// as the fallback for rules absent from the table.
func Build(execution settings.Document) (map[string]any, Selection, error) {
	sel, err := DecideQueue(execution)
	if err != nil {
		return nil, Selection{}, err
	}

	rules := execution.Section("rules")
	stack := execution.String("cluster", "stack")
	if stack == "" {
		stack = "128M"
	}

	defThreads := rules.Int(1, DefaultRule, "threads")
	defMemory := NormalizeMemory(rules.Section(DefaultRule)["memory"])
	if defMemory == "" {
		defMemory = NormalizeMemory(execution.Section("cluster")["memory"])
	}
	if defMemory == "" {
		defMemory = "4G"
	}

	out := make(map[string]any, len(rules)+1)
	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Strings(names)
	if _, ok := rules[DefaultRule]; !ok {
		names = append(names, DefaultRule)
	}

	for _, name := range names {
		rule := rules.Section(name)
		entry := map[string]any{
			"nthreads": ruleInt(rule, "threads", defThreads),
			"MEM":      ruleMemory(rule, defMemory),
			"h_stack":  stack,
		}
		switch sel.Policy {
		case GlobalQueue:
			entry["queue"] = sel.Queue
		case PerRuleQueue:
			if q := rule.String("queue"); q != "" {
				entry["queue"] = q
			} else {
				entry["queue"] = sel.Queue
			}
		}
		out[name] = entry
	}
	return out, sel, nil
}

// WriteConfig builds the cluster configuration and writes it next to the
// run configuration. Nothing is written when the queue decision fails.
func WriteConfig(execution settings.Document, path string) (Selection, error) {
	table, sel, err := Build(execution)
	if err != nil {
		return Selection{}, err
	}
	if err := runconfig.WriteFile(path, table); err != nil {
		return Selection{}, err
	}
	return sel, nil
}

// NormalizeMemory renders a memory request for the queue manager. Bare
// integers and digit-only strings mean megabytes and become "<N>M"; any
// other string is passed through untouched.
func NormalizeMemory(v any) string {
	switch m := v.(type) {
	case int:
		return fmt.Sprintf("%dM", m)
	case int64:
		return fmt.Sprintf("%dM", m)
	case float64:
		return fmt.Sprintf("%dM", int64(m))
	case string:
		if m == "" {
			return ""
		}
		if isDigits(m) {
			return m + "M"
		}
		return m
	default:
		return ""
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func ruleInt(rule settings.Document, key string, fallback int) int {
	return rule.Int(fallback, key)
}

func ruleMemory(rule settings.Document, fallback string) string {
	if m := NormalizeMemory(rule["memory"]); m != "" {
		return m
	}
	return fallback
}
