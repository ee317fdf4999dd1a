package engine

import (
	"github.com/FutilityDesigns/Glyph-Reader/internal/monitoring"
)

// audioQueueDepth bounds the playback mailbox. Overflow drops the newest
// request: a celebration sound that cannot start promptly is stale.
const audioQueueDepth = 3

// Player is the audio codec collaborator that actually streams a file.
type Player interface {
	PlayFile(name string) error
}

// AudioQueue adapts a Player to the dispatcher's fire-and-forget Play with a
// bounded mailbox, so the sensor loop never waits on the codec.
type AudioQueue struct {
	ch chan string
}

// NewAudioQueue returns a queue of the standard depth.
func NewAudioQueue() *AudioQueue {
	return &AudioQueue{ch: make(chan string, audioQueueDepth)}
}

// Play enqueues a filename; the newest request is dropped when full.
func (q *AudioQueue) Play(filename string) {
	select {
	case q.ch <- filename:
	default:
		monitoring.Debugf("audio queue full, dropping %s", filename)
	}
}

// Drain feeds queued filenames to the player until the channel closes.
func (q *AudioQueue) Drain(player Player) {
	for name := range q.ch {
		if player == nil {
			continue
		}
		if err := player.PlayFile(name); err != nil {
			monitoring.Debugf("audio playback failed: %v", err)
		}
	}
}

// Close stops Drain.
func (q *AudioQueue) Close() { close(q.ch) }
