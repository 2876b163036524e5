package state

import (
	"sync"
)

// Manager keeps dialogs in memory, keyed by Telegram user id. Dialogs do not
// survive a restart; the user simply presses the button again.
type Manager struct {
	mu      sync.RWMutex
	dialogs map[int64]Dialog
}

func NewManager() *Manager {
	return &Manager{
		dialogs: make(map[int64]Dialog),
	}
}

// Get returns the active dialog of the user, if any.
func (sm *Manager) Get(telegramID int64) (Dialog, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	d, ok := sm.dialogs[telegramID]
	return d, ok
}

// InState reports whether the user is at the given dialog step.
func (sm *Manager) InState(telegramID int64, state UserState) bool {
	d, ok := sm.Get(telegramID)
	return ok && d.State == state
}

// Set replaces the user's dialog. Setting StateNone clears it.
func (sm *Manager) Set(telegramID int64, d Dialog) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if d.State == StateNone {
		delete(sm.dialogs, telegramID)
		return
	}
	sm.dialogs[telegramID] = d
}

// Take returns and clears the user's dialog in one step, so two messages
// arriving together cannot both complete it.
func (sm *Manager) Take(telegramID int64) (Dialog, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	d, ok := sm.dialogs[telegramID]
	delete(sm.dialogs, telegramID)
	return d, ok
}

func (sm *Manager) Clear(telegramID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	delete(sm.dialogs, telegramID)
}
