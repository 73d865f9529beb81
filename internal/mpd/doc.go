// Package mpd is the command layer over protocol/session: a serialized Client
// with typed replies (Status, Song, IdleEvents, Picture) and an album art
// cache.
package mpd
