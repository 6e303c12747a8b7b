// Package probe inspects an input container once per job and returns its
// duration and stream summary. The duration it reports is the single value
// the planner and pipeline use; nothing re-opens the file to ask again.
package probe
