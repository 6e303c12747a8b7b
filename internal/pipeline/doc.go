// Package pipeline orchestrates single and batch jobs: probe, plan,
// transcode, and summary reporting.
//
// Types:
//   - Runner (Backend, Log, Metrics): Run for one file, RunBatch for a tree.
//   - Result: packet counters and output time base of one Transcode.
//   - RunStats: batch counters and byte totals; SpaceSaved.
//
// Functions:
//   - Transcode(ctx, backend, plan, log): open input → create output →
//     select first video stream → open encoder (or copy params in
//     passthrough) → header → rescale and write packets → flush → trailer.
//   - Discover(inputDir): walk, filter by media extension, prune extras
//     dirs, sort.
//   - OutputPathFor: batch input → <out>/<rel dir>/<stem>.<container>.
package pipeline
