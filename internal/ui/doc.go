// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI hosts the "Shuffle Playlist" action:
//  1. [PlaylistListView] : Browse the user's playlists
//  2. [ConfirmView] : Confirm backing up and shuffling the selected playlist
//  3. [ShuffleView] : Monitor real-time progress updates
//  4. [ResultView] : Show the backup created and the outcome
//
// The action is offered only while exactly one playlist is selected and no shuffle is in flight.
// Progress updates flow through a channel from [tasks.Shuffler]; notifications arrive through [Notifier]
// and are shown in a status line. Neither path blocks the shuffle.
package ui
