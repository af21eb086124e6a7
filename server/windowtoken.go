// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"go.uber.org/zap"

	wm "github.com/lightwm/wm"
	"github.com/lightwm/wm/ipc"
)

// WindowToken is the server's record of one client token. The token owns
// its child windows by handle; each child holds the token id and resolves
// it through the service registry, so neither side owns the other's
// lifetime.
type WindowToken struct {
	service *Service
	token   wm.Token
	typ     wm.WindowType

	displayID int32
	children  []wm.Handle

	clientVisible    bool
	clientVisibility wm.Visibility

	persistOnEmpty bool
	removed        bool

	// peer is the owning client process, bound at the first AddWindow,
	// used for bulk teardown on death.
	peer *ipc.Peer
}

func newWindowToken(s *Service, token wm.Token, typ wm.WindowType, displayID int32) *WindowToken {
	return &WindowToken{
		service:          s,
		token:            token,
		typ:              typ,
		displayID:        displayID,
		clientVisibility: wm.VisibilityGone,
	}
}

func (t *WindowToken) log() *zap.Logger { return t.service.log }

// Type returns the token's window type.
func (t *WindowToken) Type() wm.WindowType { return t.typ }

// IsEmpty reports whether the token has no child windows.
func (t *WindowToken) IsEmpty() bool { return len(t.children) == 0 }

// SetPersistOnEmpty keeps the token registered after its last child is
// removed.
func (t *WindowToken) SetPersistOnEmpty(persist bool) { t.persistOnEmpty = persist }

// ClientVisible reports the effective visibility of the token's windows.
func (t *WindowToken) ClientVisible() bool { return t.clientVisible }

// ClientVisibility returns the last visibility the client requested.
func (t *WindowToken) ClientVisibility() wm.Visibility { return t.clientVisibility }

// addWindow binds a child window to the token.
func (t *WindowToken) addWindow(win *WindowState) {
	for _, h := range t.children {
		if h == win.handle() {
			t.log().Warn("window already attached", zap.Uint64("token", uint64(t.token)))
			return
		}
	}
	t.children = append(t.children, win.handle())
	t.log().Info("window attached",
		zap.Uint64("token", uint64(t.token)),
		zap.Int("children", len(t.children)))
}

// removeWindow unbinds a child window.
func (t *WindowToken) removeWindow(h wm.Handle) {
	for i, c := range t.children {
		if c == h {
			t.children = append(t.children[:i], t.children[i+1:]...)
			break
		}
	}
	if t.removed && t.IsEmpty() && !t.persistOnEmpty {
		t.service.evictToken(t.token)
	}
}

// childWindows resolves the token's children through the registry.
func (t *WindowToken) childWindows() []*WindowState {
	wins := make([]*WindowState, 0, len(t.children))
	for _, h := range t.children {
		if win := t.service.windows[h]; win != nil {
			wins = append(wins, win)
		}
	}
	return wins
}

// SetClientVisibility applies a client visibility request. Hold freezes
// the current effective state; visible and gone propagate to every child.
func (t *WindowToken) SetClientVisibility(visibility wm.Visibility) {
	if t.clientVisibility == visibility {
		return
	}
	t.log().Info("token visibility",
		zap.Uint64("token", uint64(t.token)),
		zap.Stringer("from", t.clientVisibility),
		zap.Stringer("to", visibility))

	t.clientVisibility = visibility
	if visibility == wm.VisibilityHold {
		return
	}
	t.setClientVisible(visibility == wm.VisibilityVisible)
}

func (t *WindowToken) setClientVisible(visible bool) {
	if t.clientVisible == visible {
		return
	}
	t.clientVisible = visible
	for _, win := range t.childWindows() {
		if visible {
			win.sendAppVisibilityToClients(wm.VisibilityVisible)
		} else {
			win.sendAppVisibilityToClients(wm.VisibilityGone)
		}
	}
}

// removeAllWindowsIfPossible asks every child to remove itself, honoring
// running animations.
func (t *WindowToken) removeAllWindowsIfPossible() {
	for _, win := range t.childWindows() {
		win.removeIfPossible()
	}
}

// removeImmediately tears down every child without waiting on animations.
func (t *WindowToken) removeImmediately() {
	for _, win := range t.childWindows() {
		win.removeImmediately()
	}
	t.children = nil
}
