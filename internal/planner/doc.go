// Package planner turns a target size and probed duration into a bit rate
// budget and builds the JobPlan that the pipeline executes.
//
//   - PlanBitrate: size budget minus a fixed audio reservation, per second (bitrate.go)
//   - BuildPlan: validates inputs and bundles stream selection, encoder and paths (planner.go)
//   - EstimateOutput: expected output size for reporting (bitrate.go)
package planner
