package adapter

import "strings"

// ResolveModelID strips provider and namespace prefixes from a model name.
// Both "." and "/" separate segments; the last segment is the provider model id.
//
//	ResolveModelID("xai.grok-beta")    // "grok-beta"
//	ResolveModelID("prefix/grok-beta") // "grok-beta"
func ResolveModelID(name string) string {
	if name == "" {
		return ""
	}
	parts := strings.Split(strings.ReplaceAll(name, ".", "/"), "/")
	return parts[len(parts)-1]
}
