//go:generate gomarkdoc -e -f github -o README.md . --repository.url https://github.com/agentstation/metapool --repository.default-branch master --repository.path /

// Package metapool provides a software component metadata pool with a
// binary cache, automatic reloads, change monitoring and event hooks.
package metapool
