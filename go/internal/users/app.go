package users

import (
	"sync"

	"github.com/mcdev12/fpldraft/go/internal/models"
)

// App is the in-process user directory. Names are display-only; a user
// without a known name is shown by id.
type App struct {
	mu    sync.RWMutex
	users map[string]models.User
}

// NewApp creates a new users App seeded with the given members
func NewApp(members ...models.User) *App {
	a := &App{users: make(map[string]models.User, len(members))}
	for _, u := range members {
		a.Put(u)
	}
	return a
}

// Put adds or replaces a user
func (a *App) Put(u models.User) {
	if u.ID == "" {
		return
	}
	a.mu.Lock()
	a.users[u.ID] = u
	a.mu.Unlock()
}

// GetUser returns a user by id
func (a *App) GetUser(id string) (models.User, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	u, ok := a.users[id]
	return u, ok
}

// DisplayName returns the user's name, falling back to the id.
func (a *App) DisplayName(id string) string {
	if u, ok := a.GetUser(id); ok && u.Name != "" {
		return u.Name
	}
	return id
}
