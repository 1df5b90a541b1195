package navigation

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatforge/chatforge/menu"
)

type memMenus struct {
	mu      sync.RWMutex
	menus   map[int64]*menu.Menu
	buttons map[int64][]menu.Button
}

func newMemMenus() *memMenus {
	return &memMenus{menus: make(map[int64]*menu.Menu), buttons: make(map[int64][]menu.Button)}
}

func (s *memMenus) addMenu(m menu.Menu) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := m
	s.menus[m.ID] = &cp
}

func (s *memMenus) addButton(b menu.Button, action menu.Action) {
	raw, err := menu.EncodeAction(action)
	if err != nil {
		panic(err)
	}
	b.ActionJSON = raw
	b.IsActive = true
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buttons[b.MenuID] = append(s.buttons[b.MenuID], b)
}

func (s *memMenus) deactivate(menuID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.menus[menuID]; ok {
		m.IsActive = false
	}
}

func (s *memMenus) Menu(_ context.Context, tenantID, menuID int64) (*menu.Menu, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.menus[menuID]
	if !ok || !m.IsActive || m.TenantID != tenantID {
		return nil, menu.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *memMenus) Buttons(_ context.Context, menuID int64) ([]menu.Button, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []menu.Button
	for _, b := range s.buttons[menuID] {
		if b.IsActive {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *memMenus) Button(_ context.Context, buttonID int64) (*menu.Button, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, list := range s.buttons {
		for _, b := range list {
			if b.ID == buttonID && b.IsActive {
				cp := b
				return &cp, nil
			}
		}
	}
	return nil, menu.ErrNotFound
}

func (s *memMenus) DefaultMenu(_ context.Context, tenantID int64) (*menu.Menu, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.menus {
		if m.TenantID == tenantID && m.IsDefault && m.IsActive {
			cp := *m
			return &cp, nil
		}
	}
	return nil, menu.ErrNoDefault
}

func (s *memMenus) ByTrigger(_ context.Context, tenantID int64, trigger string) (*menu.Menu, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.menus {
		if m.TenantID == tenantID && m.IsActive && m.CommandTrigger.Valid && m.CommandTrigger.String == trigger {
			cp := *m
			return &cp, nil
		}
	}
	return nil, menu.ErrNotFound
}

type memContexts struct {
	mu   sync.Mutex
	rows map[lockKey]*Context
}

func newMemContexts() *memContexts {
	return &memContexts{rows: make(map[lockKey]*Context)}
}

func copyContext(c *Context) *Context {
	cp := *c
	cp.Path = append(pq.Int64Array(nil), c.Path...)
	return &cp
}

func (s *memContexts) Load(_ context.Context, tenantID, userID int64) (*Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.rows[lockKey{tenantID, userID}]; ok {
		return copyContext(c), nil
	}
	return freshContext(tenantID, userID), nil
}

func (s *memContexts) Update(_ context.Context, tenantID, userID int64, fn func(*Context) error) (*Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := lockKey{tenantID, userID}
	var c *Context
	if existing, ok := s.rows[key]; ok {
		c = copyContext(existing)
	} else {
		c = freshContext(tenantID, userID)
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	s.rows[key] = copyContext(c)
	return c, nil
}

type memEvents struct {
	mu     sync.Mutex
	events []Event
}

func (l *memEvents) Append(_ context.Context, ev Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	return nil
}

func (l *memEvents) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventKind, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Kind
	}
	return out
}

// fixture: tenant 1 with default menu Home (id 1) holding a "Products"
// button (id 11) that navigates to the empty child menu Products (id 2).
func newFixture() (*Engine, *memMenus, *memContexts, *memEvents) {
	menus := newMemMenus()
	menus.addMenu(menu.Menu{ID: 1, TenantID: 1, Name: "Home", IsDefault: true, IsActive: true})
	menus.addMenu(menu.Menu{ID: 2, TenantID: 1, Name: "Products", IsActive: true,
		ParentID: sql.NullInt64{Int64: 1, Valid: true}})
	menus.addButton(menu.Button{ID: 11, MenuID: 1, Text: "Products"},
		menu.Action{Kind: menu.ActionNavigate, TargetMenuID: 2})

	contexts := newMemContexts()
	events := &memEvents{}
	return NewEngine(menus, contexts, events), menus, contexts, events
}

func pathOf(t *testing.T, contexts *memContexts, tenantID, userID int64) pq.Int64Array {
	t.Helper()
	c, err := contexts.Load(context.Background(), tenantID, userID)
	require.NoError(t, err)
	return c.Path
}

func TestEntryRendersDefaultMenu(t *testing.T) {
	engine, _, contexts, events := newFixture()
	ctx := context.Background()

	eff, err := engine.Entry(ctx, 1, 100)
	require.NoError(t, err)
	require.Equal(t, EffectMenu, eff.Kind)
	assert.Equal(t, "Home", eff.Menu.Name)
	assert.Len(t, eff.Buttons, 1)

	assert.Equal(t, pq.Int64Array{1}, pathOf(t, contexts, 1, 100))
	assert.Equal(t, []EventKind{EventView}, events.kinds())
}

func TestEntryWithoutDefaultMenu(t *testing.T) {
	engine := NewEngine(newMemMenus(), newMemContexts(), &memEvents{})

	eff, err := engine.Entry(context.Background(), 9, 100)
	require.NoError(t, err)
	assert.Equal(t, EffectText, eff.Kind)
	assert.Equal(t, FallbackText, eff.Text)
}

func TestNavigateThenBack(t *testing.T) {
	engine, _, contexts, _ := newFixture()
	ctx := context.Background()

	_, err := engine.Entry(ctx, 1, 100)
	require.NoError(t, err)

	eff, err := engine.Press(ctx, 1, 100, 1, 11)
	require.NoError(t, err)
	require.Equal(t, EffectMenu, eff.Kind)
	assert.Equal(t, "Products", eff.Menu.Name)
	assert.Empty(t, eff.Buttons)
	assert.Equal(t, pq.Int64Array{1, 2}, pathOf(t, contexts, 1, 100))

	eff, err = engine.Back(ctx, 1, 100)
	require.NoError(t, err)
	require.Equal(t, EffectMenu, eff.Kind)
	assert.Equal(t, "Home", eff.Menu.Name)
	assert.Equal(t, pq.Int64Array{1}, pathOf(t, contexts, 1, 100))
}

func TestBackAtRootIsIdempotent(t *testing.T) {
	engine, _, contexts, _ := newFixture()
	ctx := context.Background()

	_, err := engine.Entry(ctx, 1, 100)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		eff, err := engine.Back(ctx, 1, 100)
		require.NoError(t, err)
		require.Equal(t, EffectMenu, eff.Kind)
		assert.Equal(t, "Home", eff.Menu.Name)
		assert.Equal(t, pq.Int64Array{1}, pathOf(t, contexts, 1, 100))
	}
}

func TestBackSkipsDeactivatedMenus(t *testing.T) {
	engine, menus, contexts, _ := newFixture()
	ctx := context.Background()
	menus.addMenu(menu.Menu{ID: 3, TenantID: 1, Name: "Detail", IsActive: true,
		ParentID: sql.NullInt64{Int64: 2, Valid: true}})
	menus.addButton(menu.Button{ID: 12, MenuID: 2, Text: "Detail"},
		menu.Action{Kind: menu.ActionNavigate, TargetMenuID: 3})

	_, err := engine.Entry(ctx, 1, 100)
	require.NoError(t, err)
	_, err = engine.Press(ctx, 1, 100, 1, 11)
	require.NoError(t, err)
	_, err = engine.Press(ctx, 1, 100, 2, 12)
	require.NoError(t, err)
	require.Equal(t, pq.Int64Array{1, 2, 3}, pathOf(t, contexts, 1, 100))

	menus.deactivate(2)

	eff, err := engine.Back(ctx, 1, 100)
	require.NoError(t, err)
	require.Equal(t, EffectMenu, eff.Kind)
	assert.Equal(t, "Home", eff.Menu.Name)
	assert.Equal(t, pq.Int64Array{1}, pathOf(t, contexts, 1, 100))
}

func TestPressNavigateToDeletedMenu(t *testing.T) {
	engine, menus, contexts, _ := newFixture()
	ctx := context.Background()

	_, err := engine.Entry(ctx, 1, 100)
	require.NoError(t, err)

	menus.deactivate(2)

	// The dangling target is absorbed: current menu re-rendered, no
	// context change, no error.
	eff, err := engine.Press(ctx, 1, 100, 1, 11)
	require.NoError(t, err)
	require.Equal(t, EffectMenu, eff.Kind)
	assert.Equal(t, "Home", eff.Menu.Name)
	assert.Equal(t, pq.Int64Array{1}, pathOf(t, contexts, 1, 100))
}

func TestPressStaleButton(t *testing.T) {
	engine, _, contexts, _ := newFixture()
	ctx := context.Background()

	_, err := engine.Entry(ctx, 1, 100)
	require.NoError(t, err)

	// Unknown button id and wrong menu id both degrade to a re-render.
	eff, err := engine.Press(ctx, 1, 100, 1, 999)
	require.NoError(t, err)
	assert.Equal(t, EffectMenu, eff.Kind)

	eff, err = engine.Press(ctx, 1, 100, 2, 11)
	require.NoError(t, err)
	assert.Equal(t, EffectMenu, eff.Kind)
	assert.Equal(t, pq.Int64Array{1}, pathOf(t, contexts, 1, 100))
}

func TestPressSendMessageKeepsContext(t *testing.T) {
	engine, menus, contexts, events := newFixture()
	ctx := context.Background()
	menus.addButton(menu.Button{ID: 13, MenuID: 1, Text: "About"},
		menu.Action{Kind: menu.ActionSendMessage, Text: "We sell things."})

	_, err := engine.Entry(ctx, 1, 100)
	require.NoError(t, err)

	eff, err := engine.Press(ctx, 1, 100, 1, 13)
	require.NoError(t, err)
	assert.Equal(t, EffectText, eff.Kind)
	assert.Equal(t, "We sell things.", eff.Text)
	assert.Equal(t, pq.Int64Array{1}, pathOf(t, contexts, 1, 100))
	assert.Equal(t, []EventKind{EventView, EventAction}, events.kinds())
}

func TestCommandResetsPath(t *testing.T) {
	engine, menus, contexts, _ := newFixture()
	ctx := context.Background()
	menus.addMenu(menu.Menu{ID: 4, TenantID: 1, Name: "Support", IsActive: true,
		CommandTrigger: sql.NullString{String: "/support", Valid: true}})

	_, err := engine.Entry(ctx, 1, 100)
	require.NoError(t, err)
	_, err = engine.Press(ctx, 1, 100, 1, 11)
	require.NoError(t, err)
	require.Equal(t, pq.Int64Array{1, 2}, pathOf(t, contexts, 1, 100))

	eff, err := engine.Command(ctx, 1, 100, "/support")
	require.NoError(t, err)
	require.Equal(t, EffectMenu, eff.Kind)
	assert.Equal(t, "Support", eff.Menu.Name)
	assert.Equal(t, pq.Int64Array{4}, pathOf(t, contexts, 1, 100))

	_, err = engine.Command(ctx, 1, 100, "/nosuch")
	assert.ErrorIs(t, err, menu.ErrNotFound)
}

func TestConcurrentPressesAreSerialized(t *testing.T) {
	engine, _, contexts, _ := newFixture()
	ctx := context.Background()

	_, err := engine.Entry(ctx, 1, 100)
	require.NoError(t, err)

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := engine.Press(ctx, 1, 100, 1, 11)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Every press is applied exactly once in some serial order.
	path := pathOf(t, contexts, 1, 100)
	assert.Len(t, path, 1+n)
	for _, id := range path {
		assert.Contains(t, []int64{1, 2}, int64(id))
	}
}

func TestPathInvariant(t *testing.T) {
	engine, _, contexts, _ := newFixture()
	ctx := context.Background()

	ops := []func() (Effect, error){
		func() (Effect, error) { return engine.Entry(ctx, 1, 100) },
		func() (Effect, error) { return engine.Press(ctx, 1, 100, 1, 11) },
		func() (Effect, error) { return engine.Back(ctx, 1, 100) },
		func() (Effect, error) { return engine.Press(ctx, 1, 100, 1, 11) },
		func() (Effect, error) { return engine.Back(ctx, 1, 100) },
		func() (Effect, error) { return engine.Back(ctx, 1, 100) },
	}
	for _, op := range ops {
		_, err := op()
		require.NoError(t, err)

		c, err := contexts.Load(ctx, 1, 100)
		require.NoError(t, err)
		if _, ok := c.AtMenu(); ok {
			assert.NotEmpty(t, c.Path)
		}
	}
}
