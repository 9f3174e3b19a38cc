// Package rules ships the default detection rule tables as embedded YAML.
// The files are parsed at startup by internal/rules; they are data, not
// code, so new detections are additions here rather than new branches in
// the validators.
package rules

import "embed"

//go:embed *.yaml
var embedded embed.FS

// FS returns the embedded filesystem with execguard's default rules.
func FS() embed.FS {
	return embedded
}
