package catalog

// StepDefinition identifies one canonical step of the response playbook.
// The table below is fixed at process start; payloads may still report
// steps outside it and consumers must preserve those (see reconciler).
type StepDefinition struct {
	Key         string
	DisplayName string
	Ordinal     int
}

var definitions = []StepDefinition{
	{Key: "lookup_ip", DisplayName: "IP reputation lookup", Ordinal: 0},
	{Key: "quarantine_host", DisplayName: "Quarantine host", Ordinal: 1},
	{Key: "block_ip", DisplayName: "Block IP at firewall", Ordinal: 2},
	{Key: "enrich_threat_intel", DisplayName: "Threat intel enrichment", Ordinal: 3},
	{Key: "escalate", DisplayName: "Escalate to SOC", Ordinal: 4},
	{Key: "notify_soc", DisplayName: "Notify SOC channel", Ordinal: 5},
	{Key: "finalize_response", DisplayName: "Finalize response", Ordinal: 6},
}

var byKey = func() map[string]StepDefinition {
	m := make(map[string]StepDefinition, len(definitions))
	for _, def := range definitions {
		m[def.Key] = def
	}
	return m
}()

// Lookup returns the definition for a canonical step key.
func Lookup(key string) (StepDefinition, bool) {
	def, ok := byKey[key]
	return def, ok
}

// Definitions returns all canonical steps in playbook order. The returned
// slice is a copy; callers may mutate it freely.
func Definitions() []StepDefinition {
	out := make([]StepDefinition, len(definitions))
	copy(out, definitions)
	return out
}

// Keys returns all canonical step keys in playbook order.
func Keys() []string {
	keys := make([]string, len(definitions))
	for i, def := range definitions {
		keys[i] = def.Key
	}
	return keys
}

// Size returns the number of canonical steps.
func Size() int {
	return len(definitions)
}
