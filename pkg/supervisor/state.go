package supervisor

import "sync"

// userState carries the cross-turn routing context for one user: the
// agent that served the last dispatch and every parameter extracted so
// far. Params grow across turns; later values overwrite earlier ones. The
// mutex serializes whole turns, which is what guarantees arrival-order
// processing per user.
type userState struct {
	mu sync.Mutex

	currentAgentID string
	params         map[string]any
}

// userStates hands out one userState per user id. Entries live for the
// process lifetime; their footprint is a mutex, an agent id and the
// accumulated params.
type userStates struct {
	mu     sync.Mutex
	states map[string]*userState
}

func newUserStates() *userStates {
	return &userStates{states: make(map[string]*userState)}
}

func (u *userStates) get(userID string) *userState {
	u.mu.Lock()
	defer u.mu.Unlock()
	st, ok := u.states[userID]
	if !ok {
		st = &userState{params: map[string]any{}}
		u.states[userID] = st
	}
	return st
}

// reset drops the routing context for a user. Blocks until any in-flight
// turn for that user finishes.
func (u *userStates) reset(userID string) {
	u.mu.Lock()
	st, ok := u.states[userID]
	u.mu.Unlock()
	if !ok {
		return
	}
	st.mu.Lock()
	st.currentAgentID = ""
	st.params = map[string]any{}
	st.mu.Unlock()
}

// mergeParams overlays fresh onto a copy of base. The result is a new,
// never-nil map; neither input is mutated.
func mergeParams(base, fresh map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(fresh))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range fresh {
		merged[k] = v
	}
	return merged
}
