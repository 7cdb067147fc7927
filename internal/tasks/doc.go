// Package tasks backs up and shuffles a remote playlist with real-time progress reporting.
//
// # Core Operation
//
// [Shuffler.Run] performs one backup-then-shuffle:
//
//  1. Fetching : parse the playlist reference and read its full track order
//  2. BackingUp : create "<name> (Backup <timestamp>)" and append the order to it
//  3. Shuffling : permute the order in memory with [Shuffle] (Fisher–Yates)
//  4. WritingBack : replace the first 100 tracks, then append the rest
//
// The original playlist is never written until every call populating the backup has returned a snapshot id.
// A failure during write-back leaves the original partially written and the backup in place.
//
// # Batching and Pacing
//
// [BatchWriter] splits a sequence into chunks of at most 100 tracks and issues one call per chunk.
// A [Pacer] spaces calls apart; [NewPacer] returns a [rate.Limiter] configured for a fixed delay.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
// The [ProgressUpdate] struct carries the [State], step counters and a message.
// Updates use select with default to prevent blocking.
//
// # Notifications
//
// A [Notifier] receives three transient messages: start, success and a generic failure.
// Error details go to the logger and the returned error, never to the notification.
package tasks
