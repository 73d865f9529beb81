// Package monitor keeps three server connections busy: "command" for reads
// triggered by change notifications, "status" for periodic polling while
// playing, and "idle" parked on the idle command. Changes come out of
// Service.Events as typed snapshots.
package monitor
