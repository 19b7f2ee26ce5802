package playback

import "github.com/tessro/cadence/internal/core"

// ToggleLike flips the advisory like flag for track, or the loaded track
// when track is nil. It returns the new flag. The server remains the source
// of truth; see Reconcile.
func (c *Controller) ToggleLike(track *core.Track) bool {
	c.mu.Lock()
	if track == nil {
		track = c.track
	}
	if track == nil || track.ID == "" {
		c.mu.Unlock()
		return false
	}

	liked := !c.liked[track.ID]
	c.setLikedLocked(track.ID, liked)
	c.emitLocked(EventStateChanged, nil, nil)
	c.commit()
	return liked
}

// IsLiked reports the advisory like flag for track, or the loaded track.
func (c *Controller) IsLiked(track *core.Track) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if track == nil {
		track = c.track
	}
	return track != nil && c.liked[track.ID]
}

// Reconcile overwrites the advisory flag with the server's answer.
func (c *Controller) Reconcile(id string, liked bool) {
	c.mu.Lock()
	if id == "" || c.liked[id] == liked {
		c.mu.Unlock()
		return
	}
	c.setLikedLocked(id, liked)
	c.emitLocked(EventStateChanged, nil, nil)
	c.commit()
}

// ReplaceLiked swaps the whole advisory set for the server's liked list.
func (c *Controller) ReplaceLiked(ids []string) {
	c.mu.Lock()
	c.liked = make(map[string]bool, len(ids))
	for _, id := range ids {
		if id != "" {
			c.liked[id] = true
		}
	}
	c.emitLocked(EventStateChanged, nil, nil)
	c.commit()
}

func (c *Controller) setLikedLocked(id string, liked bool) {
	if liked {
		c.liked[id] = true
	} else {
		delete(c.liked, id)
	}
	if c.track != nil && c.track.ID == id {
		c.track.IsLiked = liked
	}
}
