// Package connectors holds the event sources that feed the ingestion queue.
// Each connector watches one kind of source and translates its change
// notifications into ingest and retract jobs.
package connectors
