// Package exporter sequences one export run against the portal.
//
// A run authenticates, scans the child's gallery down to the cutoff date,
// submits the selected pictures as a zip export job, waits for the job and
// downloads the archive. A run that finds no pictures ends successfully
// without submitting anything. Every failure aborts the run and is returned
// unchanged; nothing is retried across stages.
//
// The submitted job id is checkpointed so an interrupted run can resume
// polling with a fresh session instead of submitting again.
package exporter
